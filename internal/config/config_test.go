package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  ")

	_, err := LoadConfig()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GAME_RULES_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GeminiAPIKey != "secret" {
		t.Errorf("Expected key secret, got %q", cfg.GeminiAPIKey)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("Expected default model, got %q", cfg.Model)
	}
	if cfg.StatePath != "lab2_output/state/save_1.json" {
		t.Errorf("Unexpected state path %q", cfg.StatePath)
	}
	if cfg.Rules.MaxDays != 3 || cfg.Rules.CraftCost != 5 {
		t.Errorf("Unexpected default rules %+v", cfg.Rules)
	}
	if cfg.UsesSQLite() {
		t.Errorf("JSON state path should not select sqlite")
	}
}

func TestUsesSQLite(t *testing.T) {
	for path, want := range map[string]bool{
		"saves/game.db":     true,
		"saves/game.SQLITE": true,
		"saves/game.json":   false,
	} {
		cfg := &Config{StatePath: path}
		if got := cfg.UsesSQLite(); got != want {
			t.Errorf("UsesSQLite(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoadRulesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := []byte("max_days: 5\nday_pause: 250ms\nstarting:\n  gold: 40\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.MaxDays != 5 {
		t.Errorf("Expected max_days 5, got %d", rules.MaxDays)
	}
	if rules.DayPause != 250*time.Millisecond {
		t.Errorf("Expected 250ms pause, got %s", rules.DayPause)
	}
	if rules.CraftCost != 5 {
		t.Errorf("Expected default craft cost, got %d", rules.CraftCost)
	}
	if rules.Starting.Gold != 40 {
		t.Errorf("Expected starting gold 40, got %d", rules.Starting.Gold)
	}
	if rules.Starting.ReputationLevel != "Apprentice" {
		t.Errorf("Expected default reputation, got %q", rules.Starting.ReputationLevel)
	}
	if rules.Starting.Ingredients["Water"] != 10 {
		t.Errorf("Expected default ingredients, got %v", rules.Starting.Ingredients)
	}
}

func TestLoadRulesRejectsNegativeDays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("max_days: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for negative max_days")
	}
}
