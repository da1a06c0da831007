// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/citysim/pkg/types"
)

// Event names recorded by Baseline.
const (
	EventMovedIn  = "moved_in"
	EventPaidRent = "paid_rent"
	EventBirthday = "birthday"
)

// Baseline is a bookkeeping model: residents move in on the first day, pay
// rent on the first of each month, and age on a fixed birthday. It has no
// behaviour of its own and exists so that runs produce histories.
type Baseline struct {
	pop     types.Population
	arbiter *Arbiter
	entries [][]types.HistoryEntry
}

// NewBaseline returns a Baseline over pop. arbiter may be nil.
func NewBaseline(pop types.Population, arbiter *Arbiter) *Baseline {
	return &Baseline{
		pop:     pop,
		arbiter: arbiter,
		entries: make([][]types.HistoryEntry, len(pop)),
	}
}

// Arbiter returns the configured arbiter, or nil.
func (b *Baseline) Arbiter() *Arbiter { return b.arbiter }

// birthday returns the day of the year on which agent a ages. It is
// derived from the agent ID so it stays fixed across runs.
func birthday(a *types.Agent) int {
	return 1 + (a.ID*97)%365
}

// Step implements Model.
func (b *Baseline) Step(ctx context.Context, day int, date time.Time) error {
	for i, a := range b.pop {
		if day == 0 {
			b.record(i, day, date, EventMovedIn, fmt.Sprintf("%s, %d friends", a.Attributes.Neighborhood, len(a.Friends)))
		}
		if date.Day() == 1 {
			b.record(i, day, date, EventPaidRent, fmt.Sprintf("%.0f", a.Attributes.Rent))
		}
		if date.YearDay() == birthday(a) {
			b.record(i, day, date, EventBirthday, fmt.Sprintf("age %d", date.Year()-a.Attributes.BirthYear))
		}
	}
	return ctx.Err()
}

func (b *Baseline) record(i, day int, date time.Time, event, detail string) {
	b.entries[i] = append(b.entries[i], types.HistoryEntry{
		Day:    day,
		Date:   date,
		Event:  event,
		Detail: detail,
	})
}

// Histories implements Model.
func (b *Baseline) Histories() []types.History {
	out := make([]types.History, len(b.pop))
	for i, a := range b.pop {
		entries := b.entries[i]
		if entries == nil {
			entries = []types.HistoryEntry{}
		}
		out[i] = types.History{
			ID:      a.ID,
			Name:    a.Name,
			Entries: entries,
			Goals:   []string{},
		}
	}
	return out
}
