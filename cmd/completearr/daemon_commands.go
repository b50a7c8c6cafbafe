package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"completearr/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the reconciliation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				client.Close()
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := launchDaemon(exe, ctx); err != nil {
				return err
			}
			if err := waitForSocket(ctx, 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the reconciliation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			err := ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Stop()
				return err
			})
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			fmt.Fprintln(stdout, "Stop request sent")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				printStatus(cmd, status)
				return nil
			})
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger an immediate reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunNow()
				if err != nil {
					return err
				}
				if !resp.Started {
					return errors.New(resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run started: %s\n", resp.RunID)
				return nil
			})
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Force-clear the run lock and status record",
		Long:  "Clears a stuck run state. Use only when the status says a run is active but no pass is actually in flight.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reset()
				if err != nil {
					return err
				}
				if !resp.Reset {
					return errors.New(resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd, runCmd, cancelCmd, resetCmd}
}

func printStatus(cmd *cobra.Command, status *ipc.StatusResponse) {
	stdout := cmd.OutOrStdout()

	rows := [][]string{
		{"Running", yesNo(status.Running)},
		{"Run active", yesNo(status.RunActive)},
	}
	if status.RunActive {
		rows = append(rows,
			[]string{"Run ID", status.CurrentRunID},
			[]string{"Started", formatTime(status.StartedAt)})
	}
	if !status.NextRun.IsZero() {
		rows = append(rows, []string{"Next run", formatTime(status.NextRun)})
	}
	if status.LastSummary != nil {
		s := status.LastSummary
		rows = append(rows,
			[]string{"Last checked", fmt.Sprintf("%d", s.ItemsChecked)},
			[]string{"Last promotions", fmt.Sprintf("%d", s.Promotions)},
			[]string{"Last demotions", fmt.Sprintf("%d", s.Demotions)},
			[]string{"Last corrections", fmt.Sprintf("%d", s.Corrections)},
			[]string{"Last errors", fmt.Sprintf("%d", s.Errors)})
	}
	rows = append(rows, []string{"PID", fmt.Sprintf("%d", status.PID)})

	if isatty.IsTerminal(os.Stdout.Fd()) {
		tbl := newResultTable("Field", "Value")
		for _, row := range rows {
			tbl.addRow(row...)
		}
		fmt.Fprintln(stdout, tbl.render())
		return
	}
	for _, row := range rows {
		fmt.Fprintf(stdout, "%s: %s\n", row[0], row[1])
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func daemonExecutable() (string, error) {
	self, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(self), "completearrd")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("completearrd")
	if err != nil {
		return "", fmt.Errorf("completearrd binary not found next to the CLI or in PATH")
	}
	return path, nil
}

func launchDaemon(exe string, ctx *commandContext) error {
	args := []string{}
	if ctx.configFlag != nil && *ctx.configFlag != "" {
		args = append(args, "--config", *ctx.configFlag)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	// Detach; the daemon writes its own pid file.
	return cmd.Process.Release()
}

func waitForSocket(ctx *commandContext, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client, err := ctx.dialClient(); err == nil {
			client.Close()
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("daemon did not become ready in time")
}
