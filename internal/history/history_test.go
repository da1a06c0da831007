// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citysim/pkg/types"
)

// --- test helpers ---

func samplePopulation() types.Population {
	return types.Population{
		{ID: 0, Name: "Ada Chen", Attributes: types.Attributes{Occupation: "professional", Neighborhood: "Harbor", Rent: 910, Education: types.EducationGraduate}, Friends: []int{1, 2}},
		{ID: 1, Name: "Ben Diaz", Attributes: types.Attributes{Occupation: "labor", Neighborhood: "Eastgate", Rent: 640}, Friends: []int{0}},
		{ID: 2, Name: "Cora O'Neil", Attributes: types.Attributes{Occupation: "sales", Neighborhood: "Harbor", Rent: 880}, Friends: []int{0}},
	}
}

func sampleHistories() []types.History {
	day0 := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []types.History{
		{ID: 0, Name: "Ada Chen", Entries: []types.HistoryEntry{
			{Day: 0, Date: day0, Event: "moved_in", Detail: "Harbor, 2 friends"},
			{Day: 0, Date: day0, Event: "paid_rent", Detail: "910"},
		}, Goals: []string{"find_work"}},
		{ID: 1, Name: "Ben Diaz", Entries: []types.HistoryEntry{
			{Day: 0, Date: day0, Event: "moved_in", Detail: "Eastgate, 1 friends"},
		}},
		{ID: 2, Name: "Cora O'Neil", Entries: []types.HistoryEntry{}},
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// --- files ---

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		h    types.History
		want string
	}{
		{"plain", types.History{ID: 3, Name: "Ada"}, "Ada_3.json"},
		{"space", types.History{ID: 12, Name: "Ada Chen"}, "Ada_Chen_12.json"},
		{"path separators", types.History{ID: 1, Name: "../x/y"}, ".._x_y_1.json"},
		{"apostrophe", types.History{ID: 2, Name: "Cora O'Neil"}, "Cora_O_Neil_2.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.h))
		})
	}
}

func TestWriteDirReplacesContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "histories")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale_9.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, dbFile), []byte("db"), 0o644))

	n, err := WriteDir(dir, sampleHistories())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Ada_Chen_0.json", "Ben_Diaz_1.json", "Cora_O_Neil_2.json", dbFile}, names)

	h, err := ReadFile(filepath.Join(dir, "Ada_Chen_0.json"))
	require.NoError(t, err)
	assert.Equal(t, sampleHistories()[0], h)

	raw, err := os.ReadFile(filepath.Join(dir, "Cora_O_Neil_2.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"history":[]`)
	assert.Contains(t, string(raw), `"goals":null`)
}

func TestWriteDirCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	n, err := WriteDir(dir, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.DirExists(t, dir)
}

func TestSnapshotYAMLRoundTrip(t *testing.T) {
	snap := Snapshot{Year: 2020, Seed: 7, Agents: samplePopulation()}
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshotYAML(&buf, snap))
	assert.Contains(t, buf.String(), "friends:")

	got, err := ReadSnapshotYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSnapshotJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshotJSON(&buf, Snapshot{Year: 2020, Agents: samplePopulation()}))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n"))
	assert.Contains(t, buf.String(), `"neighborhood": "Harbor"`)
}

// --- store ---

func TestNewStoreCreatesSchema(t *testing.T) {
	s := testStore(t)
	for _, table := range []string{"runs", "agents", "events"} {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}
	assert.FileExists(t, s.Path())
}

func TestSaveAndLoadAgent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	info, err := s.Save(ctx, RunInfo{Days: 1, Year: 2020, Seed: 42, BaseProbability: 0.4, Arbiter: "localhost:9000"},
		samplePopulation(), sampleHistories())
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 3, info.Population)
	assert.Equal(t, 2, info.Friendships)

	a, err := s.Agent(ctx, info.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ada Chen", a.Name)
	assert.Equal(t, []int{1, 2}, a.Friends)
	assert.Equal(t, types.EducationGraduate, a.Attributes.Education)
	assert.Equal(t, sampleHistories()[0].Entries, a.History.Entries)
	assert.Equal(t, []string{"find_work"}, a.History.Goals)

	b, err := s.Agent(ctx, info.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, b.History.Entries)
	assert.Equal(t, []string{}, b.History.Goals)

	_, err = s.Agent(ctx, info.ID, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsMismatchedHistories(t *testing.T) {
	s := testStore(t)
	_, err := s.Save(context.Background(), RunInfo{}, samplePopulation(), sampleHistories()[:2])
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	h := sampleHistories()
	h[1].ID = 5
	_, err = s.Save(context.Background(), RunInfo{}, samplePopulation(), h)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs, "failed saves must not leave a run behind")
}

func TestSaveRejectsUnencodableAttributes(t *testing.T) {
	s := testStore(t)
	pop := samplePopulation()
	pop[1].Attributes.Rent = math.NaN()

	_, err := s.Save(context.Background(), RunInfo{}, pop, sampleHistories())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent 1")

	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCorruptTimestampsAreReported(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	info, err := s.Save(ctx, RunInfo{}, samplePopulation(), sampleHistories())
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE events SET date = 'yesterday' WHERE run_id = ? AND agent_id = 0`, info.ID)
	require.NoError(t, err)
	_, err = s.Agent(ctx, info.ID, 0)
	assert.ErrorContains(t, err, "parsing date")

	_, err = s.db.Exec(`UPDATE runs SET started_at = 'soon' WHERE id = ?`, info.ID)
	require.NoError(t, err)
	_, err = s.Runs(ctx)
	assert.ErrorContains(t, err, "parsing start time")
}

func TestRunsNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	older := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(90 * time.Minute)

	first, err := s.Save(ctx, RunInfo{StartedAt: older, Seed: 1}, samplePopulation(), sampleHistories())
	require.NoError(t, err)
	second, err := s.Save(ctx, RunInfo{StartedAt: newer, Seed: 2}, samplePopulation(), sampleHistories())
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.True(t, newer.Equal(runs[0].StartedAt))
	assert.Equal(t, uint64(2), runs[0].Seed)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestLatestEmpty(t *testing.T) {
	_, err := testStore(t).Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventCountsAndExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	info, err := s.Save(ctx, RunInfo{Days: 1, Year: 2020}, samplePopulation(), sampleHistories())
	require.NoError(t, err)

	counts, err := s.EventCounts(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"moved_in": 2, "paid_rent": 1}, counts)

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, info.ID, &buf))
	out := buf.String()
	assert.Contains(t, out, info.ID)
	assert.Contains(t, out, "moved_in: 2")

	assert.ErrorIs(t, s.ExportYAML(ctx, "missing", &buf), ErrNotFound)
}
