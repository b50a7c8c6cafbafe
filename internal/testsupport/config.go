// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"completearr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Both libraries are enabled with a minimal valid placement layout.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	cfg.Sonarr.Enabled = true
	cfg.Sonarr.URL = "http://127.0.0.1:8989"
	cfg.Sonarr.APIKey = "test"
	cfg.Sonarr.PlacementSets = []config.PlacementSet{{
		Name:              "default",
		IncompleteProfile: "Incomplete",
		IncompleteRoot:    filepath.Join(base, "tv", "incomplete"),
		CompleteProfile:   "Complete",
		CompleteRoot:      filepath.Join(base, "tv", "complete"),
	}}

	cfg.Radarr.Enabled = true
	cfg.Radarr.URL = "http://127.0.0.1:7878"
	cfg.Radarr.APIKey = "test"
	cfg.Radarr.Placements = map[string]string{
		"HD": filepath.Join(base, "movies", "hd"),
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSonarrDisabled turns the episodic library off.
func WithSonarrDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sonarr.Enabled = false
	}
}

// WithRadarrDisabled turns the singular library off.
func WithRadarrDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Radarr.Enabled = false
	}
}

// WithDryRun enables dry-run mode.
func WithDryRun() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Behavior.DryRun = true
	}
}
