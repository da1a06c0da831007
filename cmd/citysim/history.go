// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citysim/internal/history"
	"github.com/pdiddy/citysim/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query recorded runs (runs, show, export)",
	Long: `History reads the SQLite history database written by run. Use
subcommands to list runs, show one resident's history, or export a run
summary.`,
}

// --- runs subcommand ---

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	RunE:  runHistoryRuns,
}

func runHistoryRuns(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %6s  %5s  %4s  %6s  %s\n",
		"Run", "Started", "Agents", "Days", "Year", "Edges", "Seed")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %6d  %5d  %4d  %6d  %d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Population, r.Days, r.Year, r.Friendships, r.Seed)
	}
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show AGENT_ID",
	Short: "Show one resident's attributes, friends, and history",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: agent id %q is not an integer", types.ErrInvalidArgument, args[0])
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	runID, err := resolveRun(ctx, cmd, store)
	if err != nil {
		return err
	}
	agent, err := store.Agent(ctx, runID, id)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agent)
	}

	a := agent.Attributes
	fmt.Printf("%s (%d)\n", agent.Name, agent.ID)
	fmt.Printf("  %s, %d, %s, %s\n", a.Sex, a.Age, a.Race, a.Education)
	fmt.Printf("  %s in %s, rent %.0f\n", a.Occupation, a.Neighborhood, a.Rent)
	fmt.Printf("  friends: %v\n", agent.Friends)
	if len(agent.History.Goals) > 0 {
		fmt.Printf("  goals: %s\n", strings.Join(agent.History.Goals, ", "))
	}
	fmt.Println()
	for _, e := range agent.History.Entries {
		fmt.Printf("%s  %-10s  %s\n", e.Date.Format("2006-01-02"), e.Event, e.Detail)
	}
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run summary and event counts as YAML",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	runID, err := resolveRun(ctx, cmd, store)
	if err != nil {
		return err
	}
	return store.ExportYAML(ctx, runID, os.Stdout)
}

// --- shared helpers ---

func openStore() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.NewStore(cfg.History.Dir, logger)
}

// resolveRun returns the --run flag or, when empty, the latest run.
func resolveRun(ctx context.Context, cmd *cobra.Command, store *history.Store) (string, error) {
	if id, _ := cmd.Flags().GetString("run"); id != "" {
		return id, nil
	}
	latest, err := store.Latest(ctx)
	if err != nil {
		return "", err
	}
	return latest.ID, nil
}

func init() {
	historyCmd.PersistentFlags().String("run", "", "run ID (default: latest run)")

	historyShowCmd.Flags().Bool("json", false, "output as JSON")

	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	rootCmd.AddCommand(historyCmd)
}
