package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.Scenario.DefaultVehicles)
	assert.Contains(t, cfg.Scenario.SeedSkills, "electrician")
	assert.Equal(t, 10, cfg.Webhooks.MaxAttempts)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
scenario:
  defaultVehicles: 2
  seedSkills: [plumbing]
solver:
  seed: 42
  budgetMs: 250
webhooks:
  maxAttempts: 3
  subscriptions:
    - url: http://localhost:9999/hook
      secret: shh
      events: [solve.completed]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2, cfg.Scenario.DefaultVehicles)
	assert.Equal(t, []string{"plumbing"}, cfg.Scenario.SeedSkills)
	assert.Equal(t, int64(42), cfg.Solver.Seed)
	assert.Equal(t, 250, cfg.Solver.BudgetMs)
	require.Len(t, cfg.Webhooks.Subscriptions, 1)
	assert.Equal(t, []string{"solve.completed"}, cfg.Webhooks.Subscriptions[0].Events)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad port", "port: -1"},
		{"zero vehicles", "scenario:\n  defaultVehicles: 0"},
		{"negative budget", "solver:\n  budgetMs: -5"},
		{"subscription without url", "webhooks:\n  maxAttempts: 2\n  subscriptions:\n    - secret: x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
