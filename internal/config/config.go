// Package config loads service configuration from an optional YAML
// file with environment overrides on top. Every field has a usable
// default, so the service runs with no file at all.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Port is the HTTP listen port. Overridden by PORT.
	Port int `yaml:"port"`

	// RedisURL, when set, switches solve-event fanout to Redis pub/sub.
	// Overridden by REDIS_URL.
	RedisURL string `yaml:"redisUrl"`

	// PresetDir is where named scenario presets are stored.
	PresetDir string `yaml:"presetDir"`

	Scenario ScenarioConfig `yaml:"scenario"`
	Solver   SolverConfig   `yaml:"solver"`
	Rate     RateConfig     `yaml:"rate"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
}

// ScenarioConfig seeds the initial scenario state.
type ScenarioConfig struct {
	// DefaultVehicles is the fleet size on startup.
	DefaultVehicles int `yaml:"defaultVehicles"`
	// SeedSkills pre-populates the skill catalog.
	SeedSkills []string `yaml:"seedSkills"`
}

// SolverConfig tunes the routing search.
type SolverConfig struct {
	// Seed fixes the RNG; zero seeds from the clock.
	Seed int64 `yaml:"seed"`
	// BudgetMs bounds a solve's wall time; zero means unbounded.
	BudgetMs int `yaml:"budgetMs"`
	// Iterations caps the search loop; zero uses the engine default.
	Iterations int `yaml:"iterations"`
}

// RateConfig bounds solve submissions.
type RateConfig struct {
	// SolvesPerSecond is the sustained submission rate; zero disables
	// limiting.
	SolvesPerSecond float64 `yaml:"solvesPerSecond"`
	Burst           int     `yaml:"burst"`
}

// WebhookConfig lists delivery subscriptions.
type WebhookConfig struct {
	MaxAttempts   int            `yaml:"maxAttempts"`
	Subscriptions []Subscription `yaml:"subscriptions"`
}

// Subscription is one webhook endpoint. Events lists the event types
// it receives; empty means all.
type Subscription struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:      8080,
		PresetDir: "presets",
		Scenario: ScenarioConfig{
			DefaultVehicles: 4,
			SeedSkills:      []string{"electrician", "heavy_lift", "refrigeration"},
		},
		Solver: SolverConfig{
			BudgetMs: 5000,
		},
		Rate: RateConfig{
			SolvesPerSecond: 2,
			Burst:           4,
		},
		Webhooks: WebhookConfig{MaxAttempts: 10},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides. A missing file at an explicitly given path is
// an error; an empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv loads the file named by CONFIG_PATH, or just defaults plus
// env overrides when unset.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Scenario.DefaultVehicles < 1 {
		return fmt.Errorf("defaultVehicles must be >= 1, got %d", c.Scenario.DefaultVehicles)
	}
	if c.Solver.BudgetMs < 0 {
		return fmt.Errorf("solver budgetMs must be >= 0, got %d", c.Solver.BudgetMs)
	}
	if c.Webhooks.MaxAttempts < 1 {
		return fmt.Errorf("webhook maxAttempts must be >= 1, got %d", c.Webhooks.MaxAttempts)
	}
	for i, sub := range c.Webhooks.Subscriptions {
		if sub.URL == "" {
			return fmt.Errorf("webhook subscription %d has no url", i)
		}
	}
	return nil
}
