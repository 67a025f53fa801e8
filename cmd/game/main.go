package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/tatianab/potion-shop/internal/config"
	"github.com/tatianab/potion-shop/internal/engine"
	"github.com/tatianab/potion-shop/internal/logging"
	"github.com/tatianab/potion-shop/internal/models"
	"github.com/tatianab/potion-shop/internal/oracle"
	"github.com/tatianab/potion-shop/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, engine.ErrInterrupted) || errors.Is(err, context.Canceled) {
			fmt.Println("Game stopped. Progress up to the last completed day is saved.")
			return
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	starting := cfg.Rules.Starting
	defaults := func() *models.WorldState {
		return models.NewWorldState(starting.Gold, starting.ReputationLevel, starting.Ingredients)
	}
	store, closeStore, err := models.OpenStore(cfg.StatePath, cfg.SaveName, cfg.UsesSQLite(), defaults, logger)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer closeStore()

	gemini, err := oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		return fmt.Errorf("create oracle: %w", err)
	}
	defer gemini.Close()

	orch := engine.NewOrchestrator(store, oracle.NewGateway(gemini, cfg.Rules.OracleTimeout), tui.Prompter{}, engine.Options{
		MaxDays:     cfg.Rules.MaxDays,
		CraftCost:   cfg.Rules.CraftCost,
		DayPause:    cfg.Rules.DayPause,
		ReviewPath:  cfg.ReviewPath,
		ArchivePath: cfg.ArchivePath,
		Log:         logger,
		Notifier:    tui.Console{},
	})
	sum, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if sum.Reviewed {
		fmt.Printf("\nGame log saved, check %s and %s.\n", cfg.StatePath, cfg.ReviewPath)
	} else {
		fmt.Printf("\nGame log saved to %s; the review could not be generated.\n", cfg.StatePath)
	}
	return nil
}
