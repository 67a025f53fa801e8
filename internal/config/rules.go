package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules are the tunable constants of a run.
type Rules struct {
	MaxDays       int           `yaml:"max_days"`
	CraftCost     int           `yaml:"craft_cost"`
	DayPause      time.Duration `yaml:"day_pause"`
	OracleTimeout time.Duration `yaml:"oracle_timeout"` // 0 disables the per-call timeout
	Starting      Starting      `yaml:"starting"`
}

// Starting describes the default world document used when no save exists.
type Starting struct {
	Gold            int            `yaml:"gold"`
	ReputationLevel string         `yaml:"reputation_level"`
	Ingredients     map[string]int `yaml:"ingredients"`
}

// DefaultRules returns the rules a run uses without a rules file.
func DefaultRules() Rules {
	return Rules{
		MaxDays:   3,
		CraftCost: 5,
		DayPause:  time.Second,
		Starting: Starting{
			Gold:            100,
			ReputationLevel: "Apprentice",
			Ingredients: map[string]int{
				"Water":      10,
				"Basic Herb": 5,
			},
		},
	}
}

// LoadRules reads a YAML rules file.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules: %w", err)
	}
	// Keys absent from the file keep their defaults; a present ingredients
	// map replaces the default one entirely.
	var file struct {
		MaxDays       *int           `yaml:"max_days"`
		CraftCost     *int           `yaml:"craft_cost"`
		DayPause      *time.Duration `yaml:"day_pause"`
		OracleTimeout *time.Duration `yaml:"oracle_timeout"`
		Starting      struct {
			Gold            *int           `yaml:"gold"`
			ReputationLevel string         `yaml:"reputation_level"`
			Ingredients     map[string]int `yaml:"ingredients"`
		} `yaml:"starting"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return rules, fmt.Errorf("%s: %w", path, err)
	}
	if file.MaxDays != nil {
		rules.MaxDays = *file.MaxDays
	}
	if file.CraftCost != nil {
		rules.CraftCost = *file.CraftCost
	}
	if file.DayPause != nil {
		rules.DayPause = *file.DayPause
	}
	if file.OracleTimeout != nil {
		rules.OracleTimeout = *file.OracleTimeout
	}
	if file.Starting.Gold != nil {
		rules.Starting.Gold = *file.Starting.Gold
	}
	if file.Starting.ReputationLevel != "" {
		rules.Starting.ReputationLevel = file.Starting.ReputationLevel
	}
	if file.Starting.Ingredients != nil {
		rules.Starting.Ingredients = file.Starting.Ingredients
	}
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Validate rejects rules a run cannot honour.
func (r Rules) Validate() error {
	if r.MaxDays < 0 {
		return fmt.Errorf("max_days must be >= 0, got %d", r.MaxDays)
	}
	if r.DayPause < 0 {
		return fmt.Errorf("day_pause must be >= 0, got %s", r.DayPause)
	}
	if r.OracleTimeout < 0 {
		return fmt.Errorf("oracle_timeout must be >= 0, got %s", r.OracleTimeout)
	}
	return nil
}
