package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"completearr/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Config file: %s\n", ctx.configPath)
			fmt.Fprintf(stdout, "State dir: %s\n", cfg.Paths.StateDir)
			fmt.Fprintf(stdout, "Log dir: %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(stdout, "Socket: %s\n", cfg.SocketPath())
			fmt.Fprintf(stdout, "Dry run: %s\n", yesNo(cfg.Behavior.DryRun))
			fmt.Fprintf(stdout, "Grace days: %d\n", cfg.Behavior.GraceDays)
			fmt.Fprintf(stdout, "Interval: %s\n", cfg.Interval())
			fmt.Fprintf(stdout, "Series service enabled: %s\n", yesNo(cfg.Sonarr.Enabled))
			if cfg.Sonarr.Enabled {
				fmt.Fprintf(stdout, "  URL: %s\n", cfg.Sonarr.URL)
				for _, set := range cfg.Sonarr.PlacementSets {
					fmt.Fprintf(stdout, "  Placement set %q: %s -> %s\n", set.Name, set.IncompleteRoot, set.CompleteRoot)
				}
			}
			fmt.Fprintf(stdout, "Movie service enabled: %s\n", yesNo(cfg.Radarr.Enabled))
			if cfg.Radarr.Enabled {
				fmt.Fprintf(stdout, "  URL: %s\n", cfg.Radarr.URL)
				for profile, root := range cfg.Radarr.Placements {
					fmt.Fprintf(stdout, "  Placement %q: %s\n", profile, root)
				}
			}
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
