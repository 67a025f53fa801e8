// Package player supplies actions without a human at the keyboard.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tatianab/potion-shop/internal/engine"
	"github.com/tatianab/potion-shop/internal/logging"
	"github.com/tatianab/potion-shop/internal/oracle"
)

// FallbackAction is used when the player oracle has nothing to say.
const FallbackAction = "search the nearby forest for the missing ingredients"

const system = `You are playing a potion shop management game. Answer with ONE short sentence describing what you do next. Return ONLY the action, no extra commentary.`

// Oracle asks a second model persona what the player does.
type Oracle struct {
	gateway *oracle.Gateway
	log     logging.Printer
}

func NewOracle(gateway *oracle.Gateway, log logging.Printer) *Oracle {
	return &Oracle{gateway: gateway, log: logging.OrDiscard(log)}
}

func (p *Oracle) NextAction(ctx context.Context, req engine.ActionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	missing, _ := json.Marshal(req.Missing)
	stock, _ := json.Marshal(req.Stock)
	user := fmt.Sprintf(`Day %d.
Quest: %s (deliver %s for %d gold)
Missing ingredients: %s
Ingredients in stock: %s
Gold: %d

What is your next action to get the missing ingredients?`,
		req.Day, req.Quest.Name, req.Quest.PotionName, req.Quest.Reward, missing, stock, req.Player.Gold)

	text, err := p.gateway.Text(ctx, "Player_Action", system, user)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.log.Printf("player oracle: %v; using fallback action", err)
		return FallbackAction, nil
	}
	action := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if action == "" {
		return FallbackAction, nil
	}
	return action, nil
}
