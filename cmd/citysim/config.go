// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/citysim/pkg/types"
)

// bindFlag binds a flag to a viper key so that the flag overrides the
// config file and environment.
func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

func init() {
	d := types.DefaultConfig()
	viper.SetDefault("population.count", d.Population.Count)
	viper.SetDefault("population.year", d.Population.Year)
	viper.SetDefault("population.seed", d.Population.Seed)
	viper.SetDefault("social.base_probability", d.Social.BaseProbability)
	viper.SetDefault("social.policy", d.Social.Policy)
	viper.SetDefault("social.workers", d.Social.Workers)
	viper.SetDefault("social.homophily.neighborhood", d.Social.Homophily.Neighborhood)
	viper.SetDefault("social.homophily.occupation", d.Social.Homophily.Occupation)
	viper.SetDefault("social.homophily.race", d.Social.Homophily.Race)
	viper.SetDefault("social.homophily.education", d.Social.Homophily.Education)
	viper.SetDefault("history.dir", d.History.Dir)
	viper.SetDefault("history.database", d.History.Database)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.encoding", d.Log.Encoding)
	viper.SetDefault("days", d.Days)
}

// loadConfig merges defaults, the config file, environment, and flags into
// a validated SimulationConfig. A missing start date means January 1 of
// the reference year.
func loadConfig() (types.SimulationConfig, error) {
	var cfg types.SimulationConfig
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.DateOnly),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := viper.Unmarshal(&cfg, hook); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.StartDate.IsZero() {
		cfg.StartDate = time.Date(cfg.Population.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
