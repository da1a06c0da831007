// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HistoryEntry is one recorded event in an agent's life.
type HistoryEntry struct {
	Day    int       `json:"day" yaml:"day"`
	Date   time.Time `json:"date" yaml:"date"`
	Event  string    `json:"event" yaml:"event"`
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// History is the record gathered for one agent at the end of a run.
type History struct {
	ID      int            `json:"id" yaml:"id"`
	Name    string         `json:"name" yaml:"name"`
	Entries []HistoryEntry `json:"history" yaml:"history"`
	Goals   []string       `json:"goals" yaml:"goals"`
}
