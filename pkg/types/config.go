// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// PopulationConfig holds settings for the synthesis stage.
type PopulationConfig struct {
	// Count is the number of agents to synthesize (default 100).
	Count int `json:"count" yaml:"count" mapstructure:"count" validate:"gt=0"`

	// Year is the reference year used to parameterize attribute sampling
	// (default 2020).
	Year int `json:"year" yaml:"year" mapstructure:"year" validate:"min=1900,max=2100"`

	// Seed seeds both attribute sampling and edge draws.
	Seed uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// HomophilyFactors are the odds multipliers applied by the homophily
// policy for each attribute two agents share. Every factor must be positive.
type HomophilyFactors struct {
	Neighborhood float64 `json:"neighborhood" yaml:"neighborhood" mapstructure:"neighborhood" validate:"gt=0"`
	Occupation   float64 `json:"occupation" yaml:"occupation" mapstructure:"occupation" validate:"gt=0"`
	Race         float64 `json:"race" yaml:"race" mapstructure:"race" validate:"gt=0"`
	Education    float64 `json:"education" yaml:"education" mapstructure:"education" validate:"gt=0"`
}

// SocialConfig holds settings for the social graph stage.
type SocialConfig struct {
	// BaseProbability is the connection probability before affinity
	// adjustment (default 0.4). Must lie strictly inside (0, 1).
	BaseProbability float64 `json:"base_probability" yaml:"base_probability" mapstructure:"base_probability" validate:"gt=0,lt=1"`

	// Policy selects the affinity policy: "homophily" or "uniform".
	Policy string `json:"policy" yaml:"policy" mapstructure:"policy" validate:"oneof=homophily uniform"`

	// Workers bounds the number of rows evaluated concurrently. Zero or
	// one means sequential.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0"`

	// Homophily holds the factors used when Policy is "homophily".
	Homophily HomophilyFactors `json:"homophily" yaml:"homophily" mapstructure:"homophily"`
}

// HistoryConfig holds settings for history output.
type HistoryConfig struct {
	// Dir receives one JSON file per agent and the history database.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir" validate:"required"`

	// Database enables the SQLite history database in Dir.
	Database bool `json:"database" yaml:"database" mapstructure:"database"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `json:"encoding" yaml:"encoding" mapstructure:"encoding" validate:"oneof=console json"`
}

// SimulationConfig groups all stage configurations for a run.
type SimulationConfig struct {
	Population PopulationConfig `json:"population" yaml:"population" mapstructure:"population"`
	Social     SocialConfig     `json:"social" yaml:"social" mapstructure:"social"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`

	// Days is the number of simulated days to run.
	Days int `json:"days" yaml:"days" mapstructure:"days" validate:"gte=0"`

	// StartDate is the first simulated day. Its year should normally match
	// Population.Year.
	StartDate time.Time `json:"start_date" yaml:"start_date" mapstructure:"start_date"`

	// Arbiter is an optional host:port of an external arbiter.
	Arbiter string `json:"arbiter,omitempty" yaml:"arbiter,omitempty" mapstructure:"arbiter" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when no file, flag, or
// environment variable overrides a value.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		Population: PopulationConfig{Count: 100, Year: 2020, Seed: 1},
		Social: SocialConfig{
			BaseProbability: 0.4,
			Policy:          "homophily",
			Workers:         runtime.GOMAXPROCS(0),
			Homophily:       HomophilyFactors{Neighborhood: 3, Occupation: 2, Race: 1.5, Education: 1.25},
		},
		History:    HistoryConfig{Dir: "histories", Database: true},
		Log:        LogConfig{Level: "info", Encoding: "console"},
		Days:       365,
		StartDate:  time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports all violations in
// one error wrapping ErrInvalidArgument.
func (c SimulationConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v fails %q", fe.Namespace(), fe.Value(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(msgs, "; "))
}
