// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citysim CLI. It synthesizes a
// population, wires its social graph, steps the city model day by day, and
// writes per-agent histories.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/citysim/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from configuration before any subcommand runs.
var logger = zap.NewNop()

// rootCmd is the base command for the citysim CLI.
var rootCmd = &cobra.Command{
	Use:   "citysim",
	Short: "Agent-based city simulation",
	Long: `citysim synthesizes a population of residents for a reference year, connects
them in a probabilistic social network, advances the city one simulated day at
a time, and writes each resident's history.

Use populate to inspect a synthesized population and its friendships without
running the simulation, run for a full simulation, and history to query the
runs recorded in the history database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Info("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citysim.yaml or ~/.config/citysim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-encoding", "console", "log encoding: console or json")
	rootCmd.PersistentFlags().Uint64("seed", 1, "random seed for synthesis and the social graph")
	rootCmd.PersistentFlags().Int("year", 2020, "reference year for attribute sampling")
	rootCmd.PersistentFlags().Float64("base-probability", 0.4, "base friendship probability, strictly between 0 and 1")
	rootCmd.PersistentFlags().String("policy", "homophily", "affinity policy: homophily or uniform")
	rootCmd.PersistentFlags().Int("workers", runtime.GOMAXPROCS(0), "rows of the social graph evaluated concurrently")
	rootCmd.PersistentFlags().String("history-dir", "histories", "directory for history files and the history database")

	bindFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	bindFlag("log.encoding", rootCmd.PersistentFlags().Lookup("log-encoding"))
	bindFlag("population.seed", rootCmd.PersistentFlags().Lookup("seed"))
	bindFlag("population.year", rootCmd.PersistentFlags().Lookup("year"))
	bindFlag("social.base_probability", rootCmd.PersistentFlags().Lookup("base-probability"))
	bindFlag("social.policy", rootCmd.PersistentFlags().Lookup("policy"))
	bindFlag("social.workers", rootCmd.PersistentFlags().Lookup("workers"))
	bindFlag("history.dir", rootCmd.PersistentFlags().Lookup("history-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citysim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citysim"))
		}
	}

	viper.SetEnvPrefix("CITYSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
