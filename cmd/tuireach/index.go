package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tuireach/internal/config"
	"github.com/verte-zerg/tuireach/internal/report"
	"github.com/verte-zerg/tuireach/internal/runsui"
	"github.com/verte-zerg/tuireach/internal/store"
	"github.com/verte-zerg/tuireach/internal/trigger"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().IntVar(&runsLimit, "last", 20, "limit to last N runs (0: all)")
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if isTerminal(os.Stdout) && isTerminal(os.Stdin) {
		program := tea.NewProgram(runsui.NewModel(st, runsLimit), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run runs TUI: %w", err)
		}
		return nil
	}

	runs, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		logErrf("No runs recorded yet.\n")
		return nil
	}
	return printLines(cmd, report.RunsTable(runs))
}

func newTrialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trials <run-id>",
		Short: "List the trials of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrialsCmd,
	}
}

func runTrialsCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	trials, err := st.ListTrials(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list trials: %w", err)
	}
	if len(trials) == 0 {
		logErrf("No trials saved for run %s.\n", args[0])
		return nil
	}
	return printLines(cmd, report.TrialsTable(trials))
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports usable as trigger devices",
		Args:  cobra.NoArgs,
		RunE:  runPortsCmd,
	}
}

func runPortsCmd(cmd *cobra.Command, _ []string) error {
	ports, err := trigger.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		logErrf("No serial ports found.\n")
		return nil
	}
	return printLines(cmd, ports)
}

func printLines(cmd *cobra.Command, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
