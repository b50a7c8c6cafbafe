package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConnections()
	c.normalizePlacements()
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Behavior.MoveVerification.Mode = strings.ToLower(strings.TrimSpace(c.Behavior.MoveVerification.Mode))
	return nil
}

func (c *Config) normalizePaths() error {
	for name, field := range map[string]*string{
		"paths.state_dir": &c.Paths.StateDir,
		"paths.log_dir":   &c.Paths.LogDir,
		"paths.socket":    &c.Paths.Socket,
	} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = expanded
	}
	return nil
}

func (c *Config) normalizeConnections() {
	c.Sonarr.URL = strings.TrimRight(strings.TrimSpace(c.Sonarr.URL), "/")
	c.Sonarr.APIKey = strings.TrimSpace(c.Sonarr.APIKey)
	c.Radarr.URL = strings.TrimRight(strings.TrimSpace(c.Radarr.URL), "/")
	c.Radarr.APIKey = strings.TrimSpace(c.Radarr.APIKey)
}

func (c *Config) normalizePlacements() {
	for i := range c.Sonarr.PlacementSets {
		set := &c.Sonarr.PlacementSets[i]
		set.Name = strings.TrimSpace(set.Name)
		set.IncompleteProfile = strings.TrimSpace(set.IncompleteProfile)
		set.CompleteProfile = strings.TrimSpace(set.CompleteProfile)
		set.IncompleteRoot = cleanRoot(set.IncompleteRoot)
		set.CompleteRoot = cleanRoot(set.CompleteRoot)
	}
	if len(c.Radarr.Placements) > 0 {
		cleaned := make(map[string]string, len(c.Radarr.Placements))
		for profile, root := range c.Radarr.Placements {
			cleaned[strings.TrimSpace(profile)] = cleanRoot(root)
		}
		c.Radarr.Placements = cleaned
	}
}

// cleanRoot trims whitespace and trailing separators; library roots are
// compared by prefix so a trailing slash would break matching.
func cleanRoot(root string) string {
	trimmed := strings.TrimSpace(root)
	if trimmed == "/" {
		return trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
