package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tatianab/potion-shop/internal/audit"
	"github.com/tatianab/potion-shop/internal/logging"
	"github.com/tatianab/potion-shop/internal/models"
	"github.com/tatianab/potion-shop/internal/oracle"
)

// ErrInterrupted is returned by an ActionSource when the player walks away
// from the prompt. The run stops without saving the day in progress.
var ErrInterrupted = errors.New("interrupted by player")

// Stop reasons reported in Summary.
const (
	StopMaxDays  = "max_days"
	StopBankrupt = "bankrupt"
)

// ActionRequest is what the player sees when asked for an action.
type ActionRequest struct {
	Day     int
	Player  models.Player
	Quest   models.Quest
	Missing map[string]int
	Stock   map[string]int
}

// ActionSource supplies the player's free-text action for a day on which
// ingredients are missing.
type ActionSource interface {
	NextAction(ctx context.Context, req ActionRequest) (string, error)
}

// Notifier is told about progress so it can be shown to the operator.
type Notifier interface {
	DayStarted(day int, p models.Player)
	StageFinished(r StageResult)
	Crafting(cost int, p models.Player)
	GameOver(sum Summary)
}

// Options tune a run.
type Options struct {
	MaxDays     int
	CraftCost   int
	DayPause    time.Duration
	ReviewPath  string
	ArchivePath string // optional zstd JSONL export of the game log

	Log      logging.Printer
	Notifier Notifier
	// Sleep waits between days; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Summary describes a finished run.
type Summary struct {
	DaysPlayed int
	Player     models.Player
	Reason     string
	Entries    int
	Reviewed   bool
	Review     string
}

// Orchestrator drives the day loop over a single persisted document. Only
// one orchestrator may own a document at a time.
type Orchestrator struct {
	store    models.Store
	pipeline *Pipeline
	actions  ActionSource
	opts     Options
	log      logging.Printer

	// committed is the document as of the last end-of-day save; audit
	// entries are written through to it as they happen.
	committed *models.WorldState
}

func NewOrchestrator(store models.Store, gateway *oracle.Gateway, actions ActionSource, opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	o := &Orchestrator{
		store:   store,
		actions: actions,
		opts:    opts,
		log:     logging.OrDiscard(opts.Log),
	}
	o.pipeline = NewPipeline(gateway, o.record)
	return o
}

// Run plays days until the day limit is reached or the shop runs out of
// gold, then writes the final review. Oracle failures never stop a run; a
// failed end-of-day save, an interrupted prompt or a cancelled context do.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	s := o.store.Load(ctx)
	o.committed = s.Clone()
	var sum Summary

	for s.Player.DaysPassed < o.opts.MaxDays && s.Player.Gold > 0 {
		if err := ctx.Err(); err != nil {
			return o.summarize(sum, s), err
		}
		next, err := o.playDay(ctx, s)
		if err != nil {
			return o.summarize(sum, s), err
		}
		s = next
		sum.DaysPlayed++

		if err := o.opts.Sleep(ctx, o.opts.DayPause); err != nil {
			return o.summarize(sum, s), err
		}
	}

	sum = o.summarize(sum, s)
	if s.Player.Gold <= 0 {
		sum.Reason = StopBankrupt
	} else {
		sum.Reason = StopMaxDays
	}
	o.log.Printf("game over after %d day(s): %s, gold %d", s.Player.DaysPassed, sum.Reason, s.Player.Gold)

	review, err := o.pipeline.FinalReview(ctx, s.GameLog)
	if err != nil {
		o.log.Printf("final review failed: %v", err)
		o.opts.Notifier.StageFinished(StageResult{Stage: StageFinalReview, Err: err})
	} else {
		sum.Review = review
		if err := o.writeReview(review); err != nil {
			o.log.Printf("write review: %v", err)
			o.opts.Notifier.StageFinished(StageResult{Stage: StageFinalReview, Err: err})
		} else {
			sum.Reviewed = true
			o.opts.Notifier.StageFinished(StageResult{Stage: StageFinalReview, Narrative: review})
		}
	}

	if o.opts.ArchivePath != "" {
		if err := audit.WriteArchive(o.opts.ArchivePath, s.GameLog); err != nil {
			o.log.Printf("archive game log: %v", err)
		} else {
			o.log.Printf("archived %d audit entries to %s", len(s.GameLog), o.opts.ArchivePath)
		}
	}

	o.opts.Notifier.GameOver(sum)
	return sum, nil
}

func (o *Orchestrator) playDay(ctx context.Context, s *models.WorldState) (*models.WorldState, error) {
	day := s.Player.DaysPassed + 1
	o.log.Printf("day %d start: gold %d, reputation %s", day, s.Player.Gold, s.Player.ReputationLevel)
	o.opts.Notifier.DayStarted(day, s.Player)

	var r StageResult
	s, r = o.pipeline.GenerateQuest(ctx, s)
	o.report(r)
	s, r = o.pipeline.DigestRecipe(ctx, s)
	o.report(r)

	if missing := s.CurrentQuest.Missing; len(missing) > 0 {
		action, err := o.actions.NextAction(ctx, ActionRequest{
			Day:     day,
			Player:  s.Player,
			Quest:   s.CurrentQuest,
			Missing: missing,
			Stock:   s.Inventory.Ingredients,
		})
		if err != nil {
			o.log.Printf("day %d: player action: %v", day, err)
			return s, fmt.Errorf("day %d: player action: %w", day, err)
		}
		o.log.Printf("day %d: player action %q", day, action)
		s, r = o.pipeline.EvaluateAction(ctx, s, action)
		o.report(r)
	} else {
		s.Player.Gold -= o.opts.CraftCost
		o.log.Printf("day %d: ingredients complete, crafting for %d gold", day, o.opts.CraftCost)
		o.opts.Notifier.Crafting(o.opts.CraftCost, s.Player)
	}

	s, r = o.pipeline.SettleTransaction(ctx, s)
	o.report(r)

	s.Player.DaysPassed = day
	if err := o.store.Save(ctx, s); err != nil {
		return s, fmt.Errorf("save day %d: %w", day, err)
	}
	o.committed = s.Clone()
	o.log.Printf("day %d saved: gold %d, %d audit entries", day, s.Player.Gold, len(s.GameLog))
	return s, nil
}

// record is the pipeline journal. The entry goes into the working state and
// is persisted at once on top of the last committed document, so the
// transcript survives even if the day never completes.
func (o *Orchestrator) record(ctx context.Context, s *models.WorldState, e models.AuditEntry) {
	s.AppendAudit(e)
	o.committed.AppendAudit(e)
	if err := o.store.Save(ctx, o.committed); err != nil {
		o.log.Printf("%s: persist audit entry: %v", e.Task, err)
	}
}

func (o *Orchestrator) report(r StageResult) {
	if r.Err != nil {
		o.log.Printf("%s failed, state unchanged: %v", r.Stage, r.Err)
	} else {
		o.log.Printf("%s ok", r.Stage)
		for _, op := range r.Merge.Unsupported {
			o.log.Printf("%s: %s is not supported yet, ignored", r.Stage, op)
		}
	}
	o.opts.Notifier.StageFinished(r)
}

func (o *Orchestrator) writeReview(text string) error {
	if o.opts.ReviewPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(o.opts.ReviewPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(o.opts.ReviewPath, []byte(text), 0644); err != nil {
		return err
	}
	o.log.Printf("review written to %s", o.opts.ReviewPath)
	return nil
}

func (o *Orchestrator) summarize(sum Summary, s *models.WorldState) Summary {
	sum.Player = s.Player
	sum.Entries = len(s.GameLog)
	return sum
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopNotifier struct{}

func (nopNotifier) DayStarted(int, models.Player) {}
func (nopNotifier) StageFinished(StageResult)     {}
func (nopNotifier) Crafting(int, models.Player)   {}
func (nopNotifier) GameOver(Summary)              {}
