package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"completearr/internal/config"
)

func validConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Sonarr.Enabled = true
	cfg.Sonarr.URL = "http://localhost:8989"
	cfg.Sonarr.APIKey = "key"
	cfg.Sonarr.PlacementSets = []config.PlacementSet{{
		Name:              "default",
		IncompleteProfile: "Incomplete",
		IncompleteRoot:    filepath.Join(base, "incomplete"),
		CompleteProfile:   "Complete",
		CompleteRoot:      filepath.Join(base, "complete"),
	}}
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRequiresAtLeastOneService(t *testing.T) {
	cfg := config.Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "at least one of sonarr or radarr") {
		t.Fatalf("error = %v, want service requirement", err)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := config.Default()
	cfg.Sonarr.Enabled = true
	cfg.Behavior.GraceDays = -1
	cfg.Schedule.IntervalMinutes = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{
		"sonarr.url",
		"sonarr.api_key",
		"placement_set",
		"grace_days",
		"interval_minutes",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q violation: %v", want, err)
		}
	}
}

func TestValidateRejectsIdenticalRoots(t *testing.T) {
	cfg := validConfig(t)
	cfg.Sonarr.PlacementSets[0].CompleteRoot = cfg.Sonarr.PlacementSets[0].IncompleteRoot

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("error = %v, want identical-roots violation", err)
	}
}

func TestValidateRejectsUnknownVerifyMode(t *testing.T) {
	cfg := validConfig(t)
	cfg.Behavior.MoveVerification.Mode = "psychic"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "move_verification.mode") {
		t.Fatalf("error = %v, want verify mode violation", err)
	}
}

func TestValidateRadarrPlacements(t *testing.T) {
	cfg := config.Default()
	cfg.Radarr.Enabled = true
	cfg.Radarr.URL = "http://localhost:7878"
	cfg.Radarr.APIKey = "key"
	cfg.Radarr.Placements = map[string]string{"HD": ""}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "location must be set") {
		t.Fatalf("error = %v, want empty location violation", err)
	}
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[sonarr]
enabled = true
url = "http://localhost:8989/"
api_key = "key"

[[sonarr.placement_set]]
name = "default"
incomplete_profile = "Incomplete"
incomplete_root = "` + filepath.Join(dir, "incomplete") + `/"
complete_profile = "Complete"
complete_root = "` + filepath.Join(dir, "complete") + `"

[behavior]
grace_days = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Behavior.GraceDays != 30 {
		t.Fatalf("grace days = %d, want override 30", cfg.Behavior.GraceDays)
	}
	if cfg.Schedule.IntervalMinutes != 360 {
		t.Fatalf("interval = %d, want default 360", cfg.Schedule.IntervalMinutes)
	}
	if strings.HasSuffix(cfg.Sonarr.URL, "/") {
		t.Fatalf("url = %q, want trailing slash trimmed", cfg.Sonarr.URL)
	}
	if strings.HasSuffix(cfg.Sonarr.PlacementSets[0].IncompleteRoot, string(filepath.Separator)) {
		t.Fatalf("root = %q, want trailing separator trimmed", cfg.Sonarr.PlacementSets[0].IncompleteRoot)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	// A nonexistent explicit path yields defaults, which fail validation
	// because no service is enabled.
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected validation failure for bare defaults")
	}
}

func TestEnsureDirectoriesCreatesAndChecksAccess(t *testing.T) {
	base := t.TempDir()
	cfg := validConfig(t)
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q not created: %v", dir, err)
		}
	}
}

func TestEnsureDirectoriesRejectsUnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	base := t.TempDir()
	cfg := validConfig(t)
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = ""

	if err := os.MkdirAll(cfg.Paths.StateDir, 0o500); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := cfg.EnsureDirectories(); err == nil {
		t.Fatal("expected error for unwritable state dir")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[sonarr]") {
		t.Fatal("sample config missing sonarr section")
	}
}
