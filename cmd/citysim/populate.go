// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/citysim/internal/history"
	"github.com/pdiddy/citysim/internal/population"
	"github.com/pdiddy/citysim/internal/progress"
	"github.com/pdiddy/citysim/internal/social"
	"github.com/pdiddy/citysim/pkg/types"
)

var populateCmd = &cobra.Command{
	Use:   "populate N",
	Short: "Synthesize a population and its social graph",
	Long: `Populate synthesizes N residents for the reference year, builds their
friendship network, and writes the wired population as YAML (or JSON with
--json). The snapshot can be fed back to run with --snapshot.

Every pair of residents is a friendship candidate, so the social graph
costs time quadratic in N.`,
	Args: cobra.ExactArgs(1),
	RunE: runPopulate,
}

func runPopulate(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: population %q is not an integer", types.ErrInvalidArgument, args[0])
	}
	viper.Set("population.count", n)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	pop, g, err := buildPopulation(cmd.Context(), cfg, progressWriter(quiet))
	if err != nil {
		return err
	}

	stats := g.Stats()
	logger.Info("social graph built",
		zap.Int("agents", stats.Vertices),
		zap.Int("friendships", stats.Edges),
		zap.Float64("mean_degree", stats.MeanDegree),
		zap.Int("max_degree", stats.MaxDegree),
		zap.Int("isolated", stats.Isolated),
	)

	out := io.Writer(os.Stdout)
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	snap := history.Snapshot{Year: cfg.Population.Year, Seed: cfg.Population.Seed, Agents: pop}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return history.WriteSnapshotJSON(out, snap)
	}
	return history.WriteSnapshotYAML(out, snap)
}

// progressWriter returns where progress bars are drawn, or nil when quiet.
func progressWriter(quiet bool) io.Writer {
	if quiet {
		return nil
	}
	return os.Stderr
}

// stageProgress returns a progress.Func drawing a bar labelled label on w,
// or nil when w is nil.
func stageProgress(w io.Writer, label string) progress.Func {
	if w == nil {
		return nil
	}
	return progress.NewBar(w, label, 40).Func()
}

// buildPopulation synthesizes cfg.Population.Count agents and wires their
// friendships.
func buildPopulation(ctx context.Context, cfg types.SimulationConfig, w io.Writer) (types.Population, *social.Graph, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pop, err := population.Synthesize(ctx, cfg.Population.Count, cfg.Population.Year,
		population.NewYearModel(), population.NewRand(cfg.Population.Seed), stageProgress(w, "populating..."))
	if err != nil {
		return nil, nil, err
	}
	logger.Info("population synthesized",
		zap.Int("agents", len(pop)),
		zap.Int("year", cfg.Population.Year),
		zap.Uint64("seed", cfg.Population.Seed),
	)

	g, err := wirePopulation(ctx, pop, cfg, w)
	if err != nil {
		return nil, nil, err
	}
	return pop, g, nil
}

// wirePopulation builds the social graph over pop and assigns friends.
func wirePopulation(ctx context.Context, pop types.Population, cfg types.SimulationConfig, w io.Writer) (*social.Graph, error) {
	policy, err := social.PolicyByName(cfg.Social.Policy, social.Homophily(cfg.Social.Homophily))
	if err != nil {
		return nil, err
	}
	g, err := social.BuildGraph(ctx, pop, cfg.Social.BaseProbability, social.Options{
		Seed:     cfg.Population.Seed,
		Policy:   policy,
		Workers:  cfg.Social.Workers,
		Progress: stageProgress(w, "connecting..."),
	})
	if err != nil {
		return nil, err
	}
	if err := social.Wire(pop, g); err != nil {
		return nil, err
	}
	return g, nil
}

func init() {
	populateCmd.Flags().String("out", "", "write the snapshot to a file instead of stdout")
	populateCmd.Flags().Bool("json", false, "write the snapshot as JSON")
	populateCmd.Flags().Bool("quiet", false, "do not draw progress bars")

	rootCmd.AddCommand(populateCmd)
}
