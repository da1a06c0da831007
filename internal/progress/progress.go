// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress reports stage progress to an optional observer and
// renders it as a terminal progress bar.
package progress

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Func observes progress of a stage. It is called after each unit of work
// with the number of completed units and the total. Stages never block
// on it and a nil Func is a no-op.
type Func func(done, total int)

// Report calls f if it is non-nil.
func (f Func) Report(done, total int) {
	if f != nil {
		f(done, total)
	}
}

var labelStyle = lipgloss.NewStyle().Bold(true)

// Bar renders progress for one labelled stage to a writer, redrawing a
// single line in place.
type Bar struct {
	w     io.Writer
	label string
	model progress.Model

	// last is the last rendered percentage; redraws are skipped when the
	// whole-number percentage has not moved.
	last int
}

// NewBar returns a bar that writes to w. The label is printed before the
// bar, e.g. "populating...".
func NewBar(w io.Writer, label string, width int) *Bar {
	m := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	if width > 0 {
		m.Width = width
	}
	return &Bar{w: w, label: label, model: m, last: -1}
}

// Func returns a progress.Func that drives the bar.
func (b *Bar) Func() Func {
	return func(done, total int) {
		b.Set(done, total)
	}
}

// Set redraws the bar at done/total. The line is terminated once done
// reaches total.
func (b *Bar) Set(done, total int) {
	if total <= 0 {
		return
	}
	ratio := float64(done) / float64(total)
	pct := int(ratio * 100)
	if pct == b.last && done < total {
		return
	}
	b.last = pct
	fmt.Fprintf(b.w, "\r%s %s %3d%%", labelStyle.Render(b.label), b.model.ViewAs(ratio), pct)
	if done >= total {
		fmt.Fprintln(b.w)
	}
}
