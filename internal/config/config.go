package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sys/unix"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	Socket   string `toml:"socket"`
}

// PlacementSet pairs the incomplete and complete placement for one group of
// series. Profile names are resolved against Sonarr's quality profiles at the
// start of each pass.
type PlacementSet struct {
	Name              string `toml:"name"`
	IncompleteProfile string `toml:"incomplete_profile"`
	IncompleteRoot    string `toml:"incomplete_root"`
	CompleteProfile   string `toml:"complete_profile"`
	CompleteRoot      string `toml:"complete_root"`
}

// Sonarr contains the episodic library connection and its placement sets.
type Sonarr struct {
	Enabled       bool           `toml:"enabled"`
	URL           string         `toml:"url"`
	APIKey        string         `toml:"api_key"`
	PlacementSets []PlacementSet `toml:"placement_set"`
}

// Radarr contains the singular library connection and its profile-to-root map.
type Radarr struct {
	Enabled    bool              `toml:"enabled"`
	URL        string            `toml:"url"`
	APIKey     string            `toml:"api_key"`
	Placements map[string]string `toml:"placements"`
}

// MoveVerification controls how placement changes are confirmed.
type MoveVerification struct {
	Enabled            bool   `toml:"enabled"`
	Mode               string `toml:"mode"` // remote | filesystem | both
	Retries            int    `toml:"retries"`
	InitialDelay       int    `toml:"initial_delay"`     // seconds
	BackoffIncrement   int    `toml:"backoff_increment"` // seconds
	ReattemptOnFailure bool   `toml:"reattempt_on_failure"`
	RevertOnFailure    bool   `toml:"revert_on_failure"`
}

// Behavior contains reconciliation policy knobs.
type Behavior struct {
	DryRun                   bool `toml:"dry_run"`
	GraceDays                int  `toml:"grace_days"`
	TreatUnknownAirDateAsOld bool `toml:"treat_unknown_air_date_as_old"`
	PreflightDelay           int  `toml:"preflight_delay"` // seconds
	PostMoveWait             int  `toml:"post_move_wait"`  // seconds
	APICallSpacingMillis     int  `toml:"api_call_spacing_ms"`
	RequestTimeout           int  `toml:"request_timeout"` // seconds
	MonitorBonusWhenComplete bool `toml:"monitor_bonus_when_complete"`
	ForceMonitorRegular      bool `toml:"force_monitor_regular"`

	MoveVerification MoveVerification `toml:"move_verification"`
}

// Schedule controls the timer-driven reconciliation trigger.
type Schedule struct {
	IntervalMinutes int  `toml:"interval_minutes"`
	RunOnStart      bool `toml:"run_on_start"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for CompleteARR.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Sonarr   Sonarr   `toml:"sonarr"`
	Radarr   Radarr   `toml:"radarr"`
	Behavior Behavior `toml:"behavior"`
	Schedule Schedule `toml:"schedule"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/completearr/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file.
// Returns the config, the resolved path, and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("completearr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories and verifies they
// are usable before the daemon starts writing lock, status, and history files
// into them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
		if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return fmt.Errorf("directory %q: insufficient permissions: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	if strings.TrimSpace(c.Paths.Socket) != "" {
		return c.Paths.Socket
	}
	return filepath.Join(c.Paths.StateDir, "completearrd.sock")
}

// LockPath returns the reconciliation run lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "run.lock")
}

// StatusPath returns the durable run status record location.
func (c *Config) StatusPath() string {
	return filepath.Join(c.Paths.StateDir, "run_status.json")
}

// HistoryDBPath returns the run history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// DaemonLockPath returns the single-instance daemon lock location.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "completearrd.lock")
}

// Interval returns the scheduled pass spacing.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}

// CallSpacing returns the minimum spacing between external API calls.
func (c *Config) CallSpacing() time.Duration {
	return time.Duration(c.Behavior.APICallSpacingMillis) * time.Millisecond
}

// RequestTimeoutDuration returns the per-request HTTP timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.Behavior.RequestTimeout) * time.Second
}

// PreflightDelay returns the settle delay applied before a pass begins.
func (c *Config) PreflightDelay() time.Duration {
	return time.Duration(c.Behavior.PreflightDelay) * time.Second
}

// PostMoveWait returns the settle delay applied after a successful move.
func (c *Config) PostMoveWait() time.Duration {
	return time.Duration(c.Behavior.PostMoveWait) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
