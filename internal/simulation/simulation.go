// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package simulation advances a city model one simulated day at a time and
// gathers the per-agent histories at the end of a run.
package simulation

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/citysim/internal/progress"
	"github.com/pdiddy/citysim/pkg/types"
)

// Model is the time-stepped world a population is handed to. Step
// advances the world by one day; Histories is called once after the last
// step.
type Model interface {
	Step(ctx context.Context, day int, date time.Time) error
	Histories() []types.History
}

// Arbiter is the address of an external coordinator shared by several
// simulation processes.
type Arbiter struct {
	Host string
	Port int
}

// String returns host:port.
func (a Arbiter) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ParseArbiter parses "host:port". An empty string means no arbiter and
// returns nil.
func ParseArbiter(s string) (*Arbiter, error) {
	if s == "" {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return nil, fmt.Errorf("%w: arbiter %q: %v", types.ErrInvalidArgument, s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: arbiter %q: port must be 1-65535", types.ErrInvalidArgument, s)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: arbiter %q: missing host", types.ErrInvalidArgument, s)
	}
	return &Arbiter{Host: host, Port: port}, nil
}

// Runner drives a Model for a number of days.
type Runner struct {
	Model Model
	Start time.Time

	Logger   *zap.Logger
	Progress progress.Func
}

// Result summarizes a finished run.
type Result struct {
	Days      int
	LastDate  time.Time
	Elapsed   time.Duration
	Histories []types.History
}

// Run steps the model days times starting at r.Start and then gathers the
// histories. A failed step aborts the run.
func (r *Runner) Run(ctx context.Context, days int) (Result, error) {
	if days < 0 {
		return Result{}, fmt.Errorf("%w: days must not be negative, got %d", types.ErrInvalidArgument, days)
	}
	if r.Model == nil {
		return Result{}, fmt.Errorf("%w: no model", types.ErrInvalidArgument)
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	date := r.Start
	for day := 0; day < days; day++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		date = r.Start.AddDate(0, 0, day)
		if err := r.Model.Step(ctx, day, date); err != nil {
			return Result{}, fmt.Errorf("day %d (%s): %w", day, date.Format(time.DateOnly), err)
		}
		logger.Debug("day complete", zap.Int("day", day), zap.Time("date", date))
		r.Progress.Report(day+1, days)
	}

	res := Result{
		Days:     days,
		LastDate: date,
		Elapsed:  time.Since(start),
	}
	logger.Info("simulation finished",
		zap.Int("days", days),
		zap.Duration("elapsed", res.Elapsed),
	)
	res.Histories = r.Model.Histories()
	return res, nil
}
