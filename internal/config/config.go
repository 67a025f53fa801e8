package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ErrMissingAPIKey is returned when the oracle credential is absent.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable is not set")

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	Model        string `env:"GAME_MODEL" envDefault:"gemini-2.5-flash"`

	StatePath   string `env:"GAME_STATE_PATH" envDefault:"lab2_output/state/save_1.json"`
	SaveName    string `env:"GAME_SAVE_NAME" envDefault:"save_1"`
	ReviewPath  string `env:"GAME_REVIEW_PATH" envDefault:"lab2_output/summary_1.txt"`
	ArchivePath string `env:"GAME_ARCHIVE_PATH"`
	LogDir      string `env:"GAME_LOG_DIR" envDefault:"lab2_output/logs"`
	RulesPath   string `env:"GAME_RULES_PATH"`

	Rules Rules `env:"-"`
}

// LoadConfig loads the configuration from environment variables and, when
// GAME_RULES_PATH is set, the rules file it points to.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	if cfg.GeminiAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg.Rules = DefaultRules()
	if cfg.RulesPath != "" {
		rules, err := LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}
	return &cfg, nil
}

// UsesSQLite reports whether the state path names a SQLite database rather
// than a JSON document.
func (c *Config) UsesSQLite() bool {
	p := strings.ToLower(c.StatePath)
	return strings.HasSuffix(p, ".db") || strings.HasSuffix(p, ".sqlite")
}
