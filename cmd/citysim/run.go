// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/citysim/internal/history"
	"github.com/pdiddy/citysim/internal/simulation"
	"github.com/pdiddy/citysim/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run POPULATION DAYS [ARBITER]",
	Short: "Run the city simulation and write resident histories",
	Long: `Run synthesizes POPULATION residents, connects them in a social network,
and advances the city DAYS simulated days. ARBITER is an optional host:port
of an external arbiter shared by cooperating simulations.

When the run finishes the history directory is cleared and one JSON file per
resident is written as {name}_{id}.json. Unless --database=false, the run is
also recorded in the history database for the history command.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSimulation,
}

func runSimulation(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: population %q is not an integer", types.ErrInvalidArgument, args[0])
	}
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: days %q is not an integer", types.ErrInvalidArgument, args[1])
	}
	viper.Set("population.count", n)
	viper.Set("days", days)
	if len(args) == 3 {
		viper.Set("arbiter", args[2])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	arbiter, err := simulation.ParseArbiter(cfg.Arbiter)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	w := progressWriter(quiet)

	var pop types.Population
	year, seed := cfg.Population.Year, cfg.Population.Seed
	if path, _ := cmd.Flags().GetString("snapshot"); path != "" {
		snap, err := loadSnapshot(path)
		if err != nil {
			return err
		}
		pop = types.Population(snap.Agents)
		if snap.Year != 0 {
			year, seed = snap.Year, snap.Seed
		}
		if !viper.IsSet("start_date") {
			cfg.StartDate = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
		logger.Info("population loaded",
			zap.String("snapshot", path),
			zap.Int("agents", len(pop)),
			zap.Int("year", year),
			zap.Uint64("seed", seed),
		)
	} else {
		pop, _, err = buildPopulation(ctx, cfg, w)
		if err != nil {
			return err
		}
	}

	model := simulation.NewBaseline(pop, arbiter)
	if arbiter != nil {
		logger.Info("arbiter configured", zap.Stringer("arbiter", arbiter))
	}
	runner := &simulation.Runner{
		Model:    model,
		Start:    cfg.StartDate,
		Logger:   logger,
		Progress: stageProgress(w, "simulating..."),
	}
	res, err := runner.Run(ctx, cfg.Days)
	if err != nil {
		return err
	}
	fmt.Println("elapsed:", res.Elapsed)

	fmt.Println("gathering histories...")
	written, err := history.WriteDir(cfg.History.Dir, res.Histories)
	if err != nil {
		return err
	}
	logger.Info("histories written", zap.String("dir", cfg.History.Dir), zap.Int("files", written))

	if !cfg.History.Database {
		return nil
	}
	store, err := history.NewStore(cfg.History.Dir, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.Save(ctx, history.RunInfo{
		Days:            cfg.Days,
		Year:            year,
		Seed:            seed,
		BaseProbability: cfg.Social.BaseProbability,
		Arbiter:         cfg.Arbiter,
	}, pop, res.Histories)
	if err != nil {
		return err
	}
	fmt.Printf("run %s recorded in %s\n", info.ID, store.Path())
	return nil
}

// loadSnapshot reads a population written by populate and checks that
// every agent's ID matches its position and its friends are in range.
func loadSnapshot(path string) (history.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap, err := history.ReadSnapshotYAML(f)
	if err != nil {
		return history.Snapshot{}, err
	}
	if len(snap.Agents) == 0 {
		return history.Snapshot{}, fmt.Errorf("%w: snapshot %s has no agents", types.ErrInvalidArgument, path)
	}
	for i, a := range snap.Agents {
		if a == nil || a.ID != i {
			return history.Snapshot{}, fmt.Errorf("%w: snapshot agent at position %d has the wrong id", types.ErrInvalidArgument, i)
		}
		for _, j := range a.Friends {
			if j < 0 || j >= len(snap.Agents) || j == i {
				return history.Snapshot{}, fmt.Errorf("%w: agent %d has invalid friend %d", types.ErrInvalidArgument, i, j)
			}
		}
	}
	return snap, nil
}

func init() {
	runCmd.Flags().String("snapshot", "", "load the population from a populate snapshot instead of synthesizing (POPULATION is then ignored)")
	runCmd.Flags().Bool("quiet", false, "do not draw progress bars")
	runCmd.Flags().Bool("database", true, "record the run in the history database")
	bindFlag("history.database", runCmd.Flags().Lookup("database"))

	rootCmd.AddCommand(runCmd)
}
