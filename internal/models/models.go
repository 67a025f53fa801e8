package models

import (
	"encoding/json"
	"maps"
)

// Player holds the shopkeeper's scalar stats.
type Player struct {
	Gold            int    `json:"gold"`
	ReputationLevel string `json:"reputation_level"`
	DaysPassed      int    `json:"days_passed"`
}

// Inventory maps item names to counts.
type Inventory struct {
	Ingredients map[string]int `json:"ingredients"`
	Potions     map[string]int `json:"potions"`
}

// Quest is the customer order currently being worked on. The zero value
// marshals to an empty object.
type Quest struct {
	Name       string         `json:"name,omitempty"`
	PotionName string         `json:"potion_name,omitempty"`
	Reward     int            `json:"reward,omitempty"`
	Missing    map[string]int `json:"missing,omitempty"` // shortfall item -> count
}

// AuditEntry records one successful oracle call.
type AuditEntry struct {
	Task       string          `json:"task"`
	UserPrompt string          `json:"user_prompt"`
	LLMOutput  json.RawMessage `json:"llm_output"`
	Day        int             `json:"day"`
}

// WorldState is the single persisted document describing a run.
type WorldState struct {
	Player       Player       `json:"player"`
	Inventory    Inventory    `json:"inventory"`
	CurrentQuest Quest        `json:"current_quest"`
	GameLog      []AuditEntry `json:"game_log"`
}

// NewWorldState builds a fresh document for a new run.
func NewWorldState(gold int, reputation string, ingredients map[string]int) *WorldState {
	s := &WorldState{
		Player: Player{
			Gold:            gold,
			ReputationLevel: reputation,
		},
		Inventory: Inventory{
			Ingredients: maps.Clone(ingredients),
			Potions:     map[string]int{},
		},
		GameLog: []AuditEntry{},
	}
	s.normalize()
	return s
}

// DefaultWorldState is the document a run starts from when nothing is saved.
func DefaultWorldState() *WorldState {
	return NewWorldState(100, "Apprentice", map[string]int{
		"Water":      10,
		"Basic Herb": 5,
	})
}

// AppendAudit adds an entry to the end of the game log.
func (s *WorldState) AppendAudit(e AuditEntry) {
	s.GameLog = append(s.GameLog, e)
}

// Clone returns a deep copy of s.
func (s *WorldState) Clone() *WorldState {
	c := *s
	c.Inventory.Ingredients = maps.Clone(s.Inventory.Ingredients)
	c.Inventory.Potions = maps.Clone(s.Inventory.Potions)
	c.CurrentQuest.Missing = maps.Clone(s.CurrentQuest.Missing)
	if s.GameLog != nil {
		c.GameLog = make([]AuditEntry, len(s.GameLog))
		for i, e := range s.GameLog {
			e.LLMOutput = append(json.RawMessage(nil), e.LLMOutput...)
			c.GameLog[i] = e
		}
	}
	c.normalize()
	return &c
}

// normalize makes sure maps and the log are never nil, so the document
// always marshals with every section present.
func (s *WorldState) normalize() {
	if s.Inventory.Ingredients == nil {
		s.Inventory.Ingredients = map[string]int{}
	}
	if s.Inventory.Potions == nil {
		s.Inventory.Potions = map[string]int{}
	}
	if s.GameLog == nil {
		s.GameLog = []AuditEntry{}
	}
}
