// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package population synthesizes the initial residents of a simulated city.
// Each agent's attributes are drawn independently from an AttributeModel
// conditioned on a reference year.
package population

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pdiddy/citysim/internal/progress"
	"github.com/pdiddy/citysim/pkg/types"
)

// AttributeModel samples one agent's name and attribute bundle for a
// reference year. Implementations draw all randomness from rng so that a
// seeded rng reproduces the same population.
type AttributeModel interface {
	Generate(year int, rng *rand.Rand) (name string, attrs types.Attributes, err error)
}

// AttributeModelFunc adapts a function to AttributeModel.
type AttributeModelFunc func(year int, rng *rand.Rand) (string, types.Attributes, error)

// Generate calls f.
func (f AttributeModelFunc) Generate(year int, rng *rand.Rand) (string, types.Attributes, error) {
	return f(year, rng)
}

// NewRand returns the attribute-sampling generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// Synthesize generates count agents with IDs 0..count-1 in generation
// order. Any model failure aborts the whole synthesis and no population is
// returned. report, if non-nil, is called after each agent.
func Synthesize(ctx context.Context, count, year int, model AttributeModel, rng *rand.Rand, report progress.Func) (types.Population, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: agent count must be positive, got %d", types.ErrInvalidArgument, count)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: attribute model is nil", types.ErrInvalidArgument)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is nil", types.ErrInvalidArgument)
	}

	pop := make(types.Population, 0, count)
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name, attrs, err := model.Generate(year, rng)
		if err != nil {
			return nil, fmt.Errorf("%w: agent %d for year %d: %w", types.ErrGenerationFailure, i, year, err)
		}
		pop = append(pop, &types.Agent{
			ID:         i,
			Name:       name,
			Attributes: attrs,
			Friends:    []int{},
		})
		report.Report(i+1, count)
	}
	return pop, nil
}
