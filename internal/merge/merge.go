// Package merge applies the update operations an oracle reply may carry onto
// a world document.
package merge

import (
	"bytes"
	"encoding/json"

	"github.com/tatianab/potion-shop/internal/models"
)

// Recognized operation keys.
const (
	OpGoldChange       = "gold_change"
	OpReputationChange = "reputation_change"
	OpInventoryUpdates = "inventory_updates"
)

// Update is the subset of a reply the merger reads. Any other key in the
// reply is ignored.
type Update struct {
	GoldChange       int             `json:"gold_change"`
	ReputationChange json.RawMessage `json:"reputation_change"`
	InventoryUpdates map[string]int  `json:"inventory_updates"`
}

// Outcome reports what an Apply did.
type Outcome struct {
	Applied []string
	// Unsupported lists recognized operations that have no effect yet.
	// Reputation tiers have no transition rule, so reputation_change is
	// accepted and reported here instead of being guessed at.
	Unsupported []string
}

// Changed reports whether the state was modified.
func (o Outcome) Changed() bool { return len(o.Applied) > 0 }

// Apply returns a copy of s with u applied. s is not modified.
//
// Counts are not clamped: gold and ingredient counts can go negative if the
// reply asks for it.
func Apply(s *models.WorldState, u Update) (*models.WorldState, Outcome) {
	next := s.Clone()
	var out Outcome

	if u.GoldChange != 0 {
		next.Player.Gold += u.GoldChange
		out.Applied = append(out.Applied, OpGoldChange)
	}
	if present(u.ReputationChange) {
		out.Unsupported = append(out.Unsupported, OpReputationChange)
	}
	if len(u.InventoryUpdates) > 0 {
		for item, delta := range u.InventoryUpdates {
			next.Inventory.Ingredients[item] += delta
		}
		out.Applied = append(out.Applied, OpInventoryUpdates)
	}
	return next, out
}

// present treats null, "", 0 and false as an absent value.
func present(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch string(v) {
	case "", "null", `""`, "0", "false":
		return false
	}
	return true
}
