package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tatianab/potion-shop/internal/oracle"
)

type oracleCall struct {
	Stage      string
	System     string
	User       string
	Structured bool
}

type reply struct {
	text string
	err  error
}

// scriptedOracle answers each stage from its own queue. When a queue runs
// dry the stage's fallback reply is used.
type scriptedOracle struct {
	mu       sync.Mutex
	queues   map[string][]reply
	fallback map[string]reply
	calls    []oracleCall
}

func newScriptedOracle() *scriptedOracle {
	return &scriptedOracle{
		queues: map[string][]reply{},
		fallback: map[string]reply{
			StageQuestGeneration:   {text: `{"name": "Sleepless Baker", "potion_name": "Dream Draught", "reward": 60}`},
			StageRecipeDigest:      {text: `{"required_ingredients": {"Water": 2}, "missing_ingredients": {}, "narrative": "All in stock."}`},
			StageActionEvaluation:  {text: `{"narrative": "You forage.", "gold_change": -10, "inventory_updates": {"Moonpetal": 1}}`},
			StageTransactionUpdate: {text: `{"narrative": "Paid in full.", "gold_change": 60, "reputation_change": "+10"}`},
			StageFinalReview:       {text: "Five juicy paragraphs.\n\nWitty Score: A"},
		},
	}
}

func (o *scriptedOracle) push(stage string, replies ...reply) *scriptedOracle {
	o.queues[stage] = append(o.queues[stage], replies...)
	return o
}

func (o *scriptedOracle) set(stage string, r reply) *scriptedOracle {
	o.fallback[stage] = r
	return o
}

func (o *scriptedOracle) Invoke(_ context.Context, system, user string, structured bool) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	stage := stageOf(system)
	o.calls = append(o.calls, oracleCall{Stage: stage, System: system, User: user, Structured: structured})
	if q := o.queues[stage]; len(q) > 0 {
		o.queues[stage] = q[1:]
		return q[0].text, q[0].err
	}
	if r, ok := o.fallback[stage]; ok {
		return r.text, r.err
	}
	return "", errors.New("no scripted reply for " + stage)
}

func (o *scriptedOracle) stages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.calls))
	for i, c := range o.calls {
		out[i] = c.Stage
	}
	return out
}

func (o *scriptedOracle) count(stage string) int {
	n := 0
	for _, s := range o.stages() {
		if s == stage {
			n++
		}
	}
	return n
}

func stageOf(system string) string {
	switch {
	case strings.Contains(system, "NPC customer"):
		return StageQuestGeneration
	case strings.Contains(system, "alchemist's assistant"):
		return StageRecipeDigest
	case strings.Contains(system, "storyteller"):
		return StageActionEvaluation
	case strings.Contains(system, "fair customer"):
		return StageTransactionUpdate
	case strings.Contains(system, "gossip reporter"):
		return StageFinalReview
	}
	return "unknown"
}

func newTestPipeline(o *scriptedOracle) *Pipeline {
	return NewPipeline(oracle.NewGateway(o, 0), nil)
}
