// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citysim/pkg/types"
)

const (
	dbFile = "citysim.db"

	// timeLayout keeps a fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned when a run or agent does not exist.
var ErrNotFound = errors.New("not found")

// Store keeps the histories of every run in a SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// RunInfo describes one simulation run.
type RunInfo struct {
	ID              string    `json:"id" yaml:"id"`
	StartedAt       time.Time `json:"started_at" yaml:"started_at"`
	Population      int       `json:"population" yaml:"population"`
	Days            int       `json:"days" yaml:"days"`
	Year            int       `json:"year" yaml:"year"`
	Seed            uint64    `json:"seed" yaml:"seed"`
	BaseProbability float64   `json:"base_probability" yaml:"base_probability"`
	Friendships     int       `json:"friendships" yaml:"friendships"`
	Arbiter         string    `json:"arbiter,omitempty" yaml:"arbiter,omitempty"`
}

// NewStore opens or creates dir/citysim.db and its schema.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			population INTEGER NOT NULL,
			days INTEGER NOT NULL,
			year INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			base_probability REAL NOT NULL,
			friendships INTEGER NOT NULL,
			arbiter TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS agents (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			name TEXT NOT NULL,
			attributes TEXT NOT NULL,
			friends TEXT NOT NULL,
			goals TEXT NOT NULL,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			agent_id INTEGER NOT NULL,
			day INTEGER NOT NULL,
			date TEXT NOT NULL,
			event TEXT NOT NULL,
			detail TEXT,
			FOREIGN KEY (run_id, agent_id) REFERENCES agents(run_id, id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_agent ON events(run_id, agent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_event ON events(event)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save records a run, its population, and the gathered histories in one
// transaction. It assigns and returns a new run ID. histories must be
// indexed by agent ID.
func (s *Store) Save(ctx context.Context, info RunInfo, pop types.Population, histories []types.History) (RunInfo, error) {
	if len(histories) != len(pop) {
		return RunInfo{}, fmt.Errorf("%w: %d histories for %d agents", types.ErrInvalidArgument, len(histories), len(pop))
	}
	info.ID = uuid.NewString()
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	info.Population = len(pop)
	info.Friendships = pop.FriendshipCount()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunInfo{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, population, days, year, seed, base_probability, friendships, arbiter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.StartedAt.Format(timeLayout), info.Population, info.Days, info.Year,
		int64(info.Seed), info.BaseProbability, info.Friendships, info.Arbiter,
	); err != nil {
		return RunInfo{}, fmt.Errorf("inserting run: %w", err)
	}

	agentStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO agents (run_id, id, name, attributes, friends, goals) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return RunInfo{}, fmt.Errorf("preparing agent insert: %w", err)
	}
	defer agentStmt.Close()

	eventStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, agent_id, day, date, event, detail) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return RunInfo{}, fmt.Errorf("preparing event insert: %w", err)
	}
	defer eventStmt.Close()

	for i, a := range pop {
		h := histories[i]
		if h.ID != a.ID {
			return RunInfo{}, fmt.Errorf("%w: history %d does not match agent %d", types.ErrInvalidArgument, h.ID, a.ID)
		}
		attrs, err := json.Marshal(a.Attributes)
		if err != nil {
			return RunInfo{}, fmt.Errorf("encoding attributes of agent %d: %w", a.ID, err)
		}
		friends, err := json.Marshal(a.Friends)
		if err != nil {
			return RunInfo{}, fmt.Errorf("encoding friends of agent %d: %w", a.ID, err)
		}
		goals, err := json.Marshal(nonNil(h.Goals))
		if err != nil {
			return RunInfo{}, fmt.Errorf("encoding goals of agent %d: %w", a.ID, err)
		}
		if _, err := agentStmt.ExecContext(ctx, info.ID, a.ID, a.Name, string(attrs), string(friends), string(goals)); err != nil {
			return RunInfo{}, fmt.Errorf("inserting agent %d: %w", a.ID, err)
		}
		for _, e := range h.Entries {
			if _, err := eventStmt.ExecContext(ctx, info.ID, a.ID, e.Day, e.Date.Format(time.RFC3339), e.Event, e.Detail); err != nil {
				return RunInfo{}, fmt.Errorf("inserting event for agent %d: %w", a.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return RunInfo{}, fmt.Errorf("committing run: %w", err)
	}
	s.logger.Info("run saved",
		zap.String("run", info.ID),
		zap.Int("agents", info.Population),
		zap.Int("friendships", info.Friendships),
	)
	return info, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Runs lists every saved run, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, population, days, year, seed, base_probability, friendships, COALESCE(arbiter, '')
		FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			r       RunInfo
			started string
			seed    int64
		)
		if err := rows.Scan(&r.ID, &started, &r.Population, &r.Days, &r.Year, &seed,
			&r.BaseProbability, &r.Friendships, &r.Arbiter); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ts, err := time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("parsing start time of run %s: %w", r.ID, err)
		}
		r.StartedAt = ts
		r.Seed = uint64(seed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Latest returns the most recent run.
func (s *Store) Latest(ctx context.Context) (RunInfo, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return RunInfo{}, err
	}
	if len(runs) == 0 {
		return RunInfo{}, fmt.Errorf("no runs recorded: %w", ErrNotFound)
	}
	return runs[0], nil
}

// Agent is a stored agent with its history.
type Agent struct {
	types.Agent `yaml:",inline"`
	History     types.History `json:"history" yaml:"history"`
}

// Agent loads one agent and its history from a run.
func (s *Store) Agent(ctx context.Context, runID string, id int) (Agent, error) {
	var out Agent
	var attrs, friends, goals string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, attributes, friends, goals FROM agents WHERE run_id = ? AND id = ?`,
		runID, id,
	).Scan(&out.ID, &out.Name, &attrs, &friends, &goals)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, fmt.Errorf("agent %d in run %s: %w", id, runID, ErrNotFound)
	}
	if err != nil {
		return Agent{}, fmt.Errorf("querying agent: %w", err)
	}
	if err := json.Unmarshal([]byte(attrs), &out.Attributes); err != nil {
		return Agent{}, fmt.Errorf("decoding attributes: %w", err)
	}
	if err := json.Unmarshal([]byte(friends), &out.Friends); err != nil {
		return Agent{}, fmt.Errorf("decoding friends: %w", err)
	}

	out.History = types.History{ID: out.ID, Name: out.Name, Entries: []types.HistoryEntry{}}
	if err := json.Unmarshal([]byte(goals), &out.History.Goals); err != nil {
		return Agent{}, fmt.Errorf("decoding goals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, date, event, COALESCE(detail, '') FROM events
		WHERE run_id = ? AND agent_id = ? ORDER BY rowid`, runID, id)
	if err != nil {
		return Agent{}, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e    types.HistoryEntry
			date string
		)
		if err := rows.Scan(&e.Day, &date, &e.Event, &e.Detail); err != nil {
			return Agent{}, fmt.Errorf("scanning event: %w", err)
		}
		d, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return Agent{}, fmt.Errorf("parsing date of agent %d event on day %d: %w", id, e.Day, err)
		}
		e.Date = d
		out.History.Entries = append(out.History.Entries, e)
	}
	return out, rows.Err()
}

// EventCounts returns how many times each event occurred in a run.
func (s *Store) EventCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event, count(*) FROM events WHERE run_id = ? GROUP BY event`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			event string
			n     int
		)
		if err := rows.Scan(&event, &n); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		counts[event] = n
	}
	return counts, rows.Err()
}

// ExportYAML writes the run summary and event counts as YAML.
func (s *Store) ExportYAML(ctx context.Context, runID string, w io.Writer) error {
	runs, err := s.Runs(ctx)
	if err != nil {
		return err
	}
	var run *RunInfo
	for i := range runs {
		if runs[i].ID == runID {
			run = &runs[i]
			break
		}
	}
	if run == nil {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	counts, err := s.EventCounts(ctx, runID)
	if err != nil {
		return err
	}

	doc := struct {
		Run    RunInfo        `yaml:"run"`
		Events map[string]int `yaml:"events"`
	}{Run: *run, Events: counts}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}
