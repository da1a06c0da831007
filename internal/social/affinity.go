// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package social

import (
	"fmt"
	"math"

	"github.com/pdiddy/citysim/pkg/types"
)

// AffinityPolicy converts a base connection probability and two agents'
// attributes into the probability that they are connected. A policy must
// be symmetric in a and b, deterministic, and return a value strictly
// inside (0, 1) for any base in (0, 1).
type AffinityPolicy func(a, b types.Attributes, base float64) float64

// Bounds of the probabilities a policy may return.
var (
	minProbability = math.SmallestNonzeroFloat64
	maxProbability = math.Nextafter(1, 0)
)

// Uniform ignores attributes and connects every pair with the base
// probability.
func Uniform(_, _ types.Attributes, base float64) float64 {
	return base
}

// Homophily raises the odds of a connection for each attribute two agents
// share. Each factor multiplies the base odds p/(1-p); a factor of 1
// leaves the odds unchanged. Factors must be positive.
type Homophily types.HomophilyFactors

// DefaultHomophily returns the factors of the default configuration.
func DefaultHomophily() Homophily {
	return Homophily(types.DefaultConfig().Social.Homophily)
}

// Validate reports a non-positive or NaN factor.
func (h Homophily) Validate() error {
	factors := []struct {
		name  string
		value float64
	}{
		{"neighborhood", h.Neighborhood},
		{"occupation", h.Occupation},
		{"race", h.Race},
		{"education", h.Education},
	}
	for _, f := range factors {
		if !(f.value > 0) || math.IsInf(f.value, 1) {
			return fmt.Errorf("%w: homophily %s factor %v must be positive and finite", types.ErrInvalidArgument, f.name, f.value)
		}
	}
	return nil
}

// Policy returns h as an AffinityPolicy. Results are clamped into (0, 1)
// because odds/(1+odds) rounds to 1 for a base close to 1. It fails if h
// does not validate.
func (h Homophily) Policy() (AffinityPolicy, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return func(a, b types.Attributes, base float64) float64 {
		odds := base / (1 - base)
		if a.Neighborhood == b.Neighborhood {
			odds *= h.Neighborhood
		}
		if a.Occupation == b.Occupation {
			odds *= h.Occupation
		}
		if a.Race == b.Race {
			odds *= h.Race
		}
		if a.Education == b.Education {
			odds *= h.Education
		}
		p := odds / (1 + odds)
		if math.IsInf(odds, 1) {
			p = 1
		}
		return min(max(p, minProbability), maxProbability)
	}, nil
}

// PolicyByName returns the named affinity policy: "homophily" or "uniform".
// The homophily policy uses factors h.
func PolicyByName(name string, h Homophily) (AffinityPolicy, error) {
	switch name {
	case "homophily", "":
		return h.Policy()
	case "uniform":
		return Uniform, nil
	default:
		return nil, fmt.Errorf("%w: unknown affinity policy %q: use homophily or uniform", types.ErrInvalidArgument, name)
	}
}
