// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists the per-agent histories gathered at the end of a
// run: one JSON file per agent, a SQLite database of runs, and YAML
// snapshots of populations.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citysim/pkg/types"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the file name for one agent's history: "{name}_{id}.json",
// with characters outside [A-Za-z0-9._-] in the name replaced by '_'.
func FileName(h types.History) string {
	name := unsafeName.ReplaceAllString(strings.TrimSpace(h.Name), "_")
	return fmt.Sprintf("%s_%d.json", name, h.ID)
}

// WriteDir removes dir, recreates it, and writes one JSON file per history.
// It returns the number of files written.
func WriteDir(dir string, histories []types.History) (int, error) {
	if err := resetDir(dir); err != nil {
		return 0, err
	}
	for i, h := range histories {
		data, err := json.Marshal(h)
		if err != nil {
			return i, fmt.Errorf("marshaling history %d: %w", h.ID, err)
		}
		if err := os.WriteFile(filepath.Join(dir, FileName(h)), data, 0o644); err != nil {
			return i, fmt.Errorf("writing history %d: %w", h.ID, err)
		}
	}
	return len(histories), nil
}

// resetDir empties dir, keeping any SQLite database files so that runs
// accumulate in the same database.
func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dir, 0o755)
		}
		return fmt.Errorf("reading history directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), dbFile) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("clearing history directory: %w", err)
		}
	}
	return nil
}

// ReadFile loads one history written by WriteDir.
func ReadFile(path string) (types.History, error) {
	var h types.History
	data, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("reading history %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("parsing history %s: %w", path, err)
	}
	return h, nil
}

// Snapshot is the serialized form of a wired population.
type Snapshot struct {
	Year   int            `json:"year" yaml:"year"`
	Seed   uint64         `json:"seed" yaml:"seed"`
	Agents []*types.Agent `json:"agents" yaml:"agents"`
}

// WriteSnapshotYAML writes s as YAML.
func WriteSnapshotYAML(w io.Writer, s Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return enc.Close()
}

// WriteSnapshotJSON writes s as indented JSON.
func WriteSnapshotJSON(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// ReadSnapshotYAML decodes a snapshot written by WriteSnapshotYAML.
func ReadSnapshotYAML(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return s, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}
