// Package journal keeps a SQLite record of every script executed through
// the bridge.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapds/pkg/operator"

	_ "modernc.org/sqlite" // sqlite driver
)

// Status is the outcome of an execution.
type Status string

// Execution outcomes.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is one journaled execution.
type Entry struct {
	ID        string
	Script    string
	Inputs    []string
	Outputs   []string
	Status    Status
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Store is a SQLite-backed journal. It implements operator.Recorder.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the journal at path and migrates it.
// Use ":memory:" for a private in-memory journal. The logger parameter may be nil.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("journal opened", slog.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record implements operator.Recorder.
func (s *Store) Record(ctx context.Context, e operator.Execution) error {
	_, err := s.Add(ctx, e)
	return err
}

// Add stores an execution and returns the new entry.
func (s *Store) Add(ctx context.Context, e operator.Execution) (*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Script:    e.Script,
		Inputs:    e.Inputs,
		Outputs:   e.Outputs,
		Status:    StatusSuccess,
		StartedAt: e.Started.UTC(),
		Duration:  e.Duration,
	}
	var errMsg sql.NullString
	if e.Err != nil {
		entry.Status = StatusFailed
		entry.Error = e.Err.Error()
		errMsg = sql.NullString{String: entry.Error, Valid: true}
	}

	s.logger.Debug("recording execution", slog.String("id", entry.ID), slog.String("status", string(entry.Status)))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, script, inputs, outputs, status, started_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Script, joinNames(entry.Inputs), joinNames(entry.Outputs),
		string(entry.Status), entry.StartedAt, entry.Duration.Milliseconds(), errMsg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}
	return entry, nil
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return e, nil
}

// List returns the most recent entries, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}
	rows, err := s.db.QueryContext(ctx, selectEntries+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}
	return entries, nil
}

const selectEntries = `SELECT id, script, inputs, outputs, status, started_at, duration_ms, error FROM executions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e               Entry
		inputs, outputs string
		status          string
		durationMS      int64
		errMsg          sql.NullString
	)
	if err := sc.Scan(&e.ID, &e.Script, &inputs, &outputs, &status, &e.StartedAt, &durationMS, &errMsg); err != nil {
		return nil, err
	}
	e.Inputs = splitNames(inputs)
	e.Outputs = splitNames(outputs)
	e.Status = Status(status)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.Error = errMsg.String
	return &e, nil
}

func joinNames(names []string) string {
	return strings.Join(names, ",")
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

var _ operator.Recorder = (*Store)(nil)
