package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"completearr/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent reconciliation passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if len(resp.Runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				tbl := newResultTable("Run", "Trigger", "Started", "Checked", "Promoted", "Demoted", "Corrected", "Errors", "Outcome")
				tbl.rightAlign(4, 5, 6, 7, 8)
				for _, run := range resp.Runs {
					outcome := "ok"
					if run.Aborted {
						outcome = "aborted"
					}
					tbl.addRow(
						run.RunID,
						label(run.Trigger),
						formatTime(run.StartedAt),
						strconv.Itoa(run.ItemsChecked),
						strconv.Itoa(run.Promotions),
						strconv.Itoa(run.Demotions),
						strconv.Itoa(run.Corrections),
						strconv.Itoa(run.Errors),
						label(outcome),
					)
				}
				fmt.Fprintln(cmd.OutOrStdout(), tbl.render())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newMovesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "moves <run-id>",
		Short: "List the moves recorded during one pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Moves(args[0])
				if err != nil {
					return err
				}
				if len(resp.Moves) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No moves recorded for that run")
					return nil
				}
				tbl := newResultTable("Kind", "Title", "Decision", "From", "To", "Outcome", "Issued")
				tbl.rightAlign(7)
				for _, move := range resp.Moves {
					tbl.addRow(
						label(move.ItemKind),
						move.ItemTitle,
						label(move.Decision),
						move.OldPath,
						move.NewPath,
						label(move.Outcome),
						strconv.Itoa(move.Issued),
					)
				}
				fmt.Fprintln(cmd.OutOrStdout(), tbl.render())
				return nil
			})
		},
	}
}
