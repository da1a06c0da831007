// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package social derives the friendship network of a synthesized
// population. BuildGraph draws one Bernoulli trial per unordered pair of
// agents at a probability supplied by an AffinityPolicy; Wire copies the
// resulting neighbor lists onto the agents.
package social

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/citysim/internal/progress"
	"github.com/pdiddy/citysim/pkg/types"
)

// Edge is an undirected edge with I < J.
type Edge struct {
	I, J int
}

// Graph is an undirected graph over the vertices [0, Len()). Each
// adjacency list is sorted ascending.
type Graph struct {
	adj [][]int
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.adj) }

// Neighbors returns a copy of i's neighbors in ascending order.
func (g *Graph) Neighbors(i int) []int {
	out := make([]int, len(g.adj[i]))
	copy(out, g.adj[i])
	return out
}

// HasEdge reports whether i and j are connected.
func (g *Graph) HasEdge(i, j int) bool {
	if i < 0 || j < 0 || i >= len(g.adj) || j >= len(g.adj) {
		return false
	}
	row := g.adj[i]
	k := sort.SearchInts(row, j)
	return k < len(row) && row[k] == j
}

// Edges returns every edge once, ordered by I then J.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for i, row := range g.adj {
		for _, j := range row {
			if j > i {
				edges = append(edges, Edge{I: i, J: j})
			}
		}
	}
	return edges
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, row := range g.adj {
		n += len(row)
	}
	return n / 2
}

// Degrees returns the degree of every vertex.
func (g *Graph) Degrees() []int {
	d := make([]int, len(g.adj))
	for i, row := range g.adj {
		d[i] = len(row)
	}
	return d
}

// Stats summarizes the degree distribution of a graph.
type Stats struct {
	Vertices   int     `json:"vertices" yaml:"vertices"`
	Edges      int     `json:"edges" yaml:"edges"`
	MeanDegree float64 `json:"mean_degree" yaml:"mean_degree"`
	MaxDegree  int     `json:"max_degree" yaml:"max_degree"`
	Isolated   int     `json:"isolated" yaml:"isolated"`
}

// Stats computes summary statistics for g.
func (g *Graph) Stats() Stats {
	s := Stats{Vertices: len(g.adj), Edges: g.EdgeCount()}
	for _, d := range g.Degrees() {
		if d == 0 {
			s.Isolated++
		}
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
	}
	if s.Vertices > 0 {
		s.MeanDegree = 2 * float64(s.Edges) / float64(s.Vertices)
	}
	return s
}

// Options controls BuildGraph.
type Options struct {
	// Seed fixes every Bernoulli draw. The same seed and population always
	// produce the same edges regardless of Workers.
	Seed uint64

	// Policy computes per-pair probabilities. Nil means Uniform.
	Policy AffinityPolicy

	// Workers bounds the number of rows evaluated concurrently. Values
	// below 2 evaluate rows one at a time.
	Workers int

	// Progress, if non-nil, is called after each row with the number of
	// finished rows. Calls are serialized.
	Progress progress.Func
}

// pairKey identifies the random sub-stream for the pair (i, j), i < j.
func pairKey(i, j int) uint64 {
	return uint64(i)<<32 | uint64(uint32(j))
}

// BuildGraph connects every unordered pair of agents with probability
// opts.Policy(a, b, baseProb), using one independent draw per pair.
//
// Every pair is a candidate, so the cost is quadratic in len(pop). That
// bounds the practical population size for a single run; pairs are never
// sampled to reduce it because that would change the edge probabilities.
//
// Each pair draws from its own PCG stream keyed by (Seed, pair), which
// keeps the result independent of row scheduling.
func BuildGraph(ctx context.Context, pop types.Population, baseProb float64, opts Options) (*Graph, error) {
	if math.IsNaN(baseProb) || baseProb <= 0 || baseProb >= 1 {
		return nil, fmt.Errorf("%w: base probability must be in (0, 1), got %v", types.ErrInvalidArgument, baseProb)
	}
	policy := opts.Policy
	if policy == nil {
		policy = Uniform
	}

	n := len(pop)
	forward := make([][]int, n)

	var (
		mu   sync.Mutex
		rows int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := drawRow(pop, i, baseProb, policy, opts.Seed)
			if err != nil {
				return err
			}
			forward[i] = row

			mu.Lock()
			rows++
			opts.Progress.Report(rows, n)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	adj := make([][]int, n)
	for i, row := range forward {
		for _, j := range row {
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	}
	return &Graph{adj: adj}, nil
}

// drawRow evaluates the pairs (i, j) for j > i and returns the j that
// were connected, ascending.
func drawRow(pop types.Population, i int, baseProb float64, policy AffinityPolicy, seed uint64) ([]int, error) {
	src := rand.NewPCG(0, 0)
	rng := rand.New(src)

	var row []int
	for j := i + 1; j < len(pop); j++ {
		p := policy(pop[i].Attributes, pop[j].Attributes, baseProb)
		if math.IsNaN(p) || p <= 0 || p >= 1 {
			return nil, fmt.Errorf("%w: probability %v for pair (%d, %d) is outside (0, 1)", types.ErrPolicyFailure, p, i, j)
		}
		src.Seed(seed, pairKey(i, j))
		if rng.Float64() < p {
			row = append(row, j)
		}
	}
	return row, nil
}

// Wire sets each agent's Friends to its neighbors in g, ascending. The
// graph is not modified.
func Wire(pop types.Population, g *Graph) error {
	if g.Len() != len(pop) {
		return fmt.Errorf("%w: graph has %d vertices for %d agents", types.ErrInvalidArgument, g.Len(), len(pop))
	}
	for i, a := range pop {
		a.Friends = g.Neighbors(i)
	}
	return nil
}
