package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/tatianab/potion-shop/internal/config"
	"github.com/tatianab/potion-shop/internal/engine"
	"github.com/tatianab/potion-shop/internal/logging"
	"github.com/tatianab/potion-shop/internal/models"
	"github.com/tatianab/potion-shop/internal/oracle"
	"github.com/tatianab/potion-shop/internal/player"
	"github.com/tatianab/potion-shop/internal/tui"
)

// simulate_game plays a whole run with a second model persona choosing the
// player's actions, so the loop can be exercised end to end unattended.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer logger.Close()

	// Game master and player share one client; each call is independent.
	gemini, err := oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		log.Fatalf("Failed to create oracle: %v", err)
	}
	defer gemini.Close()
	gateway := oracle.NewGateway(gemini, cfg.Rules.OracleTimeout)

	starting := cfg.Rules.Starting
	store, closeStore, err := models.OpenStore(cfg.StatePath, cfg.SaveName, cfg.UsesSQLite(), func() *models.WorldState {
		return models.NewWorldState(starting.Gold, starting.ReputationLevel, starting.Ingredients)
	}, logger)
	if err != nil {
		log.Fatalf("Failed to open state: %v", err)
	}
	defer closeStore()

	orch := engine.NewOrchestrator(store, gateway, player.NewOracle(gateway, logger), engine.Options{
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
		log.Fatalf("Simulation stopped: %v", err)
	}
	fmt.Printf("\nSimulated %d day(s): %s, gold %d, %d audit entries, review written: %v\n",
		sum.DaysPlayed, sum.Reason, sum.Player.Gold, sum.Entries, sum.Reviewed)
}
