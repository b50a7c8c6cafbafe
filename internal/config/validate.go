package config

import (
	"errors"
	"fmt"
)

var verifyModes = map[string]struct{}{
	"remote":     {},
	"filesystem": {},
	"both":       {},
}

// Validate ensures the configuration is usable. All violations are collected
// and returned together.
func (c *Config) Validate() error {
	var violations []error

	add := func(format string, args ...any) {
		violations = append(violations, fmt.Errorf(format, args...))
	}

	if !c.Sonarr.Enabled && !c.Radarr.Enabled {
		add("at least one of sonarr or radarr must be enabled")
	}

	if c.Sonarr.Enabled {
		if c.Sonarr.URL == "" {
			add("sonarr.url must be set when sonarr.enabled is true")
		}
		if c.Sonarr.APIKey == "" {
			add("sonarr.api_key must be set when sonarr.enabled is true")
		}
		if len(c.Sonarr.PlacementSets) == 0 {
			add("sonarr requires at least one [[sonarr.placement_set]]")
		}
		for i, set := range c.Sonarr.PlacementSets {
			label := set.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			if set.Name == "" {
				add("sonarr.placement_set %s: name must be set", label)
			}
			for field, value := range map[string]string{
				"incomplete_profile": set.IncompleteProfile,
				"incomplete_root":    set.IncompleteRoot,
				"complete_profile":   set.CompleteProfile,
				"complete_root":      set.CompleteRoot,
			} {
				if value == "" {
					add("sonarr.placement_set %s: %s must be set", label, field)
				}
			}
			if set.IncompleteRoot != "" && set.IncompleteRoot == set.CompleteRoot {
				add("sonarr.placement_set %s: incomplete_root and complete_root must differ", label)
			}
		}
	}

	if c.Radarr.Enabled {
		if c.Radarr.URL == "" {
			add("radarr.url must be set when radarr.enabled is true")
		}
		if c.Radarr.APIKey == "" {
			add("radarr.api_key must be set when radarr.enabled is true")
		}
		if len(c.Radarr.Placements) == 0 {
			add("radarr requires at least one [radarr.placements] entry")
		}
		for profile, root := range c.Radarr.Placements {
			if profile == "" {
				add("radarr.placements: empty profile name")
			}
			if root == "" {
				add("radarr.placements %q: location must be set", profile)
			}
		}
	}

	if c.Behavior.GraceDays < 0 {
		add("behavior.grace_days must be >= 0")
	}
	if c.Behavior.PreflightDelay < 0 {
		add("behavior.preflight_delay must be >= 0")
	}
	if c.Behavior.PostMoveWait < 0 {
		add("behavior.post_move_wait must be >= 0")
	}
	if c.Behavior.APICallSpacingMillis < 0 {
		add("behavior.api_call_spacing_ms must be >= 0")
	}
	if c.Behavior.RequestTimeout <= 0 {
		add("behavior.request_timeout must be positive")
	}

	mv := c.Behavior.MoveVerification
	if _, ok := verifyModes[mv.Mode]; !ok {
		add("behavior.move_verification.mode must be one of remote, filesystem, both (got %q)", mv.Mode)
	}
	if mv.Retries < 0 {
		add("behavior.move_verification.retries must be >= 0")
	}
	if mv.InitialDelay < 0 {
		add("behavior.move_verification.initial_delay must be >= 0")
	}
	if mv.BackoffIncrement < 0 {
		add("behavior.move_verification.backoff_increment must be >= 0")
	}

	if c.Schedule.IntervalMinutes <= 0 {
		add("schedule.interval_minutes must be positive")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		add("logging.format must be console or json (got %q)", c.Logging.Format)
	}

	return errors.Join(violations...)
}
