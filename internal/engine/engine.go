package engine

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tatianab/potion-shop/internal/merge"
	"github.com/tatianab/potion-shop/internal/models"
	"github.com/tatianab/potion-shop/internal/oracle"
)

// Stage names, also used as audit task identifiers.
const (
	StageQuestGeneration   = "Quest_Generation"
	StageRecipeDigest      = "Recipe_Digest"
	StageActionEvaluation  = "Action_Evaluation"
	StageTransactionUpdate = "Transaction_Update"
	StageFinalReview       = "Final_Review"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

var schemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	files := map[string]string{
		StageQuestGeneration:   "quest_generation.schema.json",
		StageRecipeDigest:      "recipe_digest.schema.json",
		StageActionEvaluation:  "action_evaluation.schema.json",
		StageTransactionUpdate: "transaction_update.schema.json",
	}
	c := jsonschema.NewCompiler()
	out := make(map[string]*jsonschema.Schema, len(files))
	for stage, name := range files {
		raw, err := fs.ReadFile(schemaFS, "schemas/"+name)
		if err != nil {
			panic(err)
		}
		if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		out[stage] = c.MustCompile(name)
	}
	return out
}

// Journal receives the audit entry of every successful oracle call, before
// the stage uses the reply. It must append the entry to s.
type Journal func(ctx context.Context, s *models.WorldState, e models.AuditEntry)

// StageResult describes what one stage did.
type StageResult struct {
	Stage     string
	Narrative string
	// Err is the *oracle.Failure of a stage whose call did not succeed. The
	// state is unchanged in that case.
	Err   error
	Merge merge.Outcome
	// Missing is the shortfall reported by the recipe digest.
	Missing map[string]int
	Quest   models.Quest
}

// Pipeline runs the oracle-backed stages of a day. Each stage takes the
// state handle and returns the state to continue with.
type Pipeline struct {
	gateway *oracle.Gateway
	journal Journal
}

func NewPipeline(gateway *oracle.Gateway, journal Journal) *Pipeline {
	if journal == nil {
		journal = func(_ context.Context, s *models.WorldState, e models.AuditEntry) { s.AppendAudit(e) }
	}
	return &Pipeline{gateway: gateway, journal: journal}
}

// GenerateQuest asks for a new order and replaces the current quest with it.
func (p *Pipeline) GenerateQuest(ctx context.Context, s *models.WorldState) (*models.WorldState, StageResult) {
	r := StageResult{Stage: StageQuestGeneration}
	data := struct{ ReputationLevel string }{s.Player.ReputationLevel}

	var reply struct {
		Name       string `json:"name"`
		PotionName string `json:"potion_name"`
		Reward     int    `json:"reward"`
	}
	if r.Err = p.call(ctx, s, StageQuestGeneration, "quest_generation", data, &reply); r.Err != nil {
		return s, r
	}

	s.CurrentQuest = models.Quest{
		Name:       reply.Name,
		PotionName: reply.PotionName,
		Reward:     reply.Reward,
	}
	r.Quest = s.CurrentQuest
	r.Narrative = reply.Name
	return s, r
}

// DigestRecipe works out what the quest potion needs and records the
// shortfall against the ingredient inventory on the quest.
func (p *Pipeline) DigestRecipe(ctx context.Context, s *models.WorldState) (*models.WorldState, StageResult) {
	r := StageResult{Stage: StageRecipeDigest}
	inventory, err := compactCounts(s.Inventory.Ingredients)
	if err != nil {
		r.Err = &oracle.Failure{Stage: StageRecipeDigest, Reason: "render prompt", Err: err}
		return s, r
	}
	data := struct {
		PotionName string
		Inventory  string
	}{s.CurrentQuest.PotionName, inventory}

	var reply struct {
		RequiredIngredients map[string]int `json:"required_ingredients"`
		MissingIngredients  map[string]int `json:"missing_ingredients"`
		Narrative           string         `json:"narrative"`
	}
	if r.Err = p.call(ctx, s, StageRecipeDigest, "recipe_digest", data, &reply); r.Err != nil {
		return s, r
	}

	r.Narrative = reply.Narrative
	if len(reply.MissingIngredients) > 0 {
		s.CurrentQuest.Missing = reply.MissingIngredients
		r.Missing = reply.MissingIngredients
	}
	r.Quest = s.CurrentQuest
	return s, r
}

// EvaluateAction narrates the player's attempt to gather the missing items
// and merges the resulting gold and inventory changes.
func (p *Pipeline) EvaluateAction(ctx context.Context, s *models.WorldState, action string) (*models.WorldState, StageResult) {
	r := StageResult{Stage: StageActionEvaluation}
	missing, err := compactCounts(s.CurrentQuest.Missing)
	if err != nil {
		r.Err = &oracle.Failure{Stage: StageActionEvaluation, Reason: "render prompt", Err: err}
		return s, r
	}
	data := struct {
		Action  string
		Missing string
		Gold    int
	}{action, missing, s.Player.Gold}

	var reply struct {
		Narrative        string         `json:"narrative"`
		GoldChange       int            `json:"gold_change"`
		InventoryUpdates map[string]int `json:"inventory_updates"`
	}
	if r.Err = p.call(ctx, s, StageActionEvaluation, "action_evaluation", data, &reply); r.Err != nil {
		return s, r
	}

	r.Narrative = reply.Narrative
	next, out := merge.Apply(s, merge.Update{
		GoldChange:       reply.GoldChange,
		InventoryUpdates: reply.InventoryUpdates,
	})
	r.Merge = out
	return next, r
}

// SettleTransaction hands the potion over and merges the payment.
func (p *Pipeline) SettleTransaction(ctx context.Context, s *models.WorldState) (*models.WorldState, StageResult) {
	r := StageResult{Stage: StageTransactionUpdate}
	data := struct {
		PotionName string
		Reward     int
	}{s.CurrentQuest.PotionName, s.CurrentQuest.Reward}

	var reply struct {
		Narrative        string          `json:"narrative"`
		GoldChange       int             `json:"gold_change"`
		ReputationChange json.RawMessage `json:"reputation_change"`
	}
	if r.Err = p.call(ctx, s, StageTransactionUpdate, "transaction_update", data, &reply); r.Err != nil {
		return s, r
	}

	r.Narrative = reply.Narrative
	next, out := merge.Apply(s, merge.Update{
		GoldChange:       reply.GoldChange,
		ReputationChange: reply.ReputationChange,
	})
	r.Merge = out
	return next, r
}

// FinalReview asks for the free-text gossip report over the whole log. The
// call is not journaled.
func (p *Pipeline) FinalReview(ctx context.Context, log []models.AuditEntry) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return "", &oracle.Failure{Stage: StageFinalReview, Reason: "render prompt", Err: err}
	}
	data := struct{ Log string }{strings.TrimSpace(buf.String())}

	system, user, err := render("final_review", data)
	if err != nil {
		return "", &oracle.Failure{Stage: StageFinalReview, Reason: "render prompt", Err: err}
	}
	return p.gateway.Text(ctx, StageFinalReview, system, user)
}

// call renders the stage prompts, sends them, decodes the reply into v and
// journals the call. Nothing is journaled when any step fails.
func (p *Pipeline) call(ctx context.Context, s *models.WorldState, stage, prompt string, data, v any) error {
	system, user, err := render(prompt, data)
	if err != nil {
		return &oracle.Failure{Stage: stage, Reason: "render prompt", Err: err}
	}
	res, err := p.gateway.Call(ctx, oracle.Request{
		Stage:  stage,
		System: system,
		User:   user,
		Schema: schemas[stage],
		Day:    s.Player.DaysPassed,
	})
	if err != nil {
		return err
	}
	if err := res.Decode(v); err != nil {
		return &oracle.Failure{Stage: stage, Reason: "reply violates contract", Err: err}
	}
	p.journal(ctx, s, res.Entry)
	return nil
}

func render(name string, data any) (system, user string, err error) {
	var sys, usr bytes.Buffer
	if err := prompts.ExecuteTemplate(&sys, name+".system", data); err != nil {
		return "", "", err
	}
	if err := prompts.ExecuteTemplate(&usr, name+".user", data); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(sys.String()), strings.TrimSpace(usr.String()), nil
}

// compactCounts renders a count map as compact JSON, keys in order.
func compactCounts(m map[string]int) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
