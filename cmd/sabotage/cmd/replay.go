package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cryptocrew/internal/app"
)

var (
	heading  = color.New(color.Bold).SprintFunc()
	winner   = color.New(color.FgHiGreen).SprintfFunc()
	loser    = color.New(color.FgHiBlack).SprintfFunc()
	saboteur = color.New(color.FgHiRed).SprintFunc()
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <log.json>",
		Short: "Re-run an archived match log and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var log app.EventLog
			if err := json.Unmarshal(data, &log); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			m, err := app.Replay(log)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), m)
		},
	}
}

func printResult(w io.Writer, m *app.SessionManager) error {
	outcome := m.Outcome()
	if outcome == nil {
		fmt.Fprintf(w, "%s %s: still %s\n", heading("game"), m.GameID(), m.Phase())
		return nil
	}

	fmt.Fprintf(w, "%s %s: %s (%s)\n", heading("game"), m.GameID(), outcome.Tag, outcome.Reason)
	view := m.Snapshot("")
	fmt.Fprintf(w, "vault %d  mined %d  stash %d\n", view.VaultGold, view.MinedGold, view.StashGold)

	for _, e := range m.Settlement().Players {
		role := string(e.Role)
		if e.Role.SaboteurAligned() {
			role = saboteur(role)
		}
		line := loser("%-24s %8d GC", e.ID, e.GCAwarded)
		if e.GCAwarded > 0 {
			line = winner("%-24s %8d GC", e.ID, e.GCAwarded)
		}
		fmt.Fprintf(w, "  %s  %s\n", line, role)
	}
	return nil
}
