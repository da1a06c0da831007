// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citysim/internal/history"
	"github.com/pdiddy/citysim/pkg/types"
)

// execute runs the CLI with args after restoring every flag and the
// values commands set on viper, so earlier invocations do not leak in.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	d := types.DefaultConfig()
	viper.Set("population.count", d.Population.Count)
	viper.Set("days", d.Days)
	viper.Set("arbiter", "")
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestPopulateThenRunFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "pop.yaml")
	histDir := filepath.Join(dir, "histories")

	require.NoError(t, execute(t, "populate", "25", "--quiet", "--seed", "4", "--out", snapPath))

	snap, err := loadSnapshot(snapPath)
	require.NoError(t, err)
	pop := types.Population(snap.Agents)
	require.Len(t, pop, 25)
	for i, a := range pop {
		for _, j := range a.Friends {
			assert.Contains(t, pop[j].Friends, i)
		}
	}

	require.NoError(t, execute(t, "run", "25", "31", "--quiet", "--snapshot", snapPath, "--history-dir", histDir))

	entries, err := os.ReadDir(histDir)
	require.NoError(t, err)
	jsonFiles := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			jsonFiles++
		}
	}
	assert.Equal(t, 25, jsonFiles)

	h, err := history.ReadFile(filepath.Join(histDir, history.FileName(types.History{ID: 0, Name: pop[0].Name})))
	require.NoError(t, err)
	assert.Equal(t, 0, h.ID)
	assert.NotEmpty(t, h.Entries)

	store, err := history.NewStore(histDir, nil)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.Latest(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 25, latest.Population)
	assert.Equal(t, 31, latest.Days)
	assert.Equal(t, pop.FriendshipCount(), latest.Friendships)
}

func TestRunRecordsSnapshotSeedAndYear(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "pop.yaml")
	histDir := filepath.Join(dir, "histories")

	require.NoError(t, execute(t, "populate", "10", "--quiet", "--seed", "77", "--year", "1990", "--out", snapPath))
	require.NoError(t, execute(t, "run", "10", "3", "--quiet", "--seed", "1", "--year", "2020",
		"--snapshot", snapPath, "--history-dir", histDir))

	store, err := history.NewStore(histDir, nil)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.Latest(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(77), latest.Seed)
	assert.Equal(t, 1990, latest.Year)

	a, err := store.Agent(t.Context(), latest.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, a.History.Entries)
	assert.Equal(t, 1990, a.History.Entries[0].Date.Year())
}

func TestRunWithoutSnapshotAfterSnapshotRun(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "pop.yaml")
	require.NoError(t, execute(t, "populate", "5", "--quiet", "--out", snapPath))
	require.NoError(t, execute(t, "run", "5", "1", "--quiet", "--snapshot", snapPath,
		"--history-dir", filepath.Join(dir, "a")))

	// population size comes from the argument, not the earlier snapshot
	histDir := filepath.Join(dir, "b")
	require.NoError(t, execute(t, "run", "8", "1", "--quiet", "--history-dir", histDir))
	store, err := history.NewStore(histDir, nil)
	require.NoError(t, err)
	defer store.Close()
	latest, err := store.Latest(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 8, latest.Population)
}

func TestRunRejectsBadArguments(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"zero population", []string{"run", "0", "10", "--quiet", "--history-dir", dir}},
		{"non-numeric days", []string{"run", "10", "ten", "--quiet", "--history-dir", dir}},
		{"bad arbiter", []string{"run", "10", "1", "nohost", "--quiet", "--history-dir", dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, execute(t, tt.args...))
		})
	}
}

func TestLoadSnapshotRejectsBadFriends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, history.WriteSnapshotYAML(f, history.Snapshot{Agents: types.Population{
		{ID: 0, Friends: []int{0}},
	}}))
	require.NoError(t, f.Close())

	_, err = loadSnapshot(path)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}
