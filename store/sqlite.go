// ABOUTME: SQLite archive of completed runs and their event logs.
// ABOUTME: A queryable history; the in-memory record stays authoritative during a run.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/infragenie/infragenie/pipeline"
)

// RunSummary is a row for list queries.
type RunSummary struct {
	ID          string `json:"id"`
	Prompt      string `json:"prompt"`
	Stage       string `json:"stage"`
	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`
	RetryCount  int    `json:"retry_count"`
	Clean       bool   `json:"clean"`
	Cost        string `json:"cost,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Archive is the SQLite-backed run history.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive database at the given path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			stage TEXT NOT NULL,
			blocked INTEGER NOT NULL,
			block_reason TEXT NOT NULL DEFAULT '',
			retry_count INTEGER NOT NULL,
			clean INTEGER NOT NULL,
			cost TEXT NOT NULL DEFAULT '',
			record_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			type TEXT NOT NULL,
			stage TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			ts TEXT NOT NULL,
			seq INTEGER NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);

		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SaveRun upserts a run and replaces its archived events. Called once when
// a run reaches a terminal marker, and safe to call again after re-runs.
func (a *Archive) SaveRun(rec *pipeline.RunRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, prompt, stage, blocked, block_reason, retry_count, clean, cost, record_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			prompt = excluded.prompt,
			stage = excluded.stage,
			blocked = excluded.blocked,
			block_reason = excluded.block_reason,
			retry_count = excluded.retry_count,
			clean = excluded.clean,
			cost = excluded.cost,
			record_json = excluded.record_json,
			updated_at = excluded.updated_at`,
		rec.ID,
		rec.Prompt,
		rec.Stage,
		boolInt(rec.Blocked),
		rec.BlockReason,
		rec.RetryCount,
		boolInt(rec.Clean),
		rec.CostEstimate,
		string(recordJSON),
		rec.CreatedAt.UTC().Format(timeLayout),
		rec.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM events WHERE run_id = ?", rec.ID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	for i, ev := range rec.EventLog {
		_, err := tx.Exec(
			"INSERT INTO events (event_id, run_id, type, stage, message, ts, seq) VALUES (?, ?, ?, ?, ?, ?, ?)",
			ev.ID, rec.ID, string(ev.Type), ev.Stage, ev.Message,
			ev.Timestamp.UTC().Format(timeLayout), i)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = fmt.Errorf("store: run not found")

// GetRun returns the full archived record.
func (a *Archive) GetRun(id string) (*pipeline.RunRecord, error) {
	var recordJSON string
	err := a.db.QueryRow("SELECT record_json FROM runs WHERE run_id = ?", id).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	var rec pipeline.RunRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// ListRuns returns run summaries, newest first.
func (a *Archive) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.Query(
		`SELECT run_id, prompt, stage, blocked, block_reason, retry_count, clean, cost, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var blocked, clean int
		if err := rows.Scan(&s.ID, &s.Prompt, &s.Stage, &blocked, &s.BlockReason,
			&s.RetryCount, &clean, &s.Cost, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		s.Blocked = blocked != 0
		s.Clean = clean != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListEvents returns a run's archived events in original order, filtered.
func (a *Archive) ListEvents(runID string, filter pipeline.EventFilter) ([]pipeline.Event, error) {
	rows, err := a.db.Query(
		"SELECT event_id, type, stage, message, ts FROM events WHERE run_id = ? ORDER BY seq ASC", runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []pipeline.Event
	for rows.Next() {
		var ev pipeline.Event
		var typ, ts string
		if err := rows.Scan(&ev.ID, &typ, &ev.Stage, &ev.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Type = pipeline.EventType(typ)
		parsed, perr := time.Parse(timeLayout, ts)
		if perr != nil {
			return nil, fmt.Errorf("parse event timestamp: %w", perr)
		}
		ev.Timestamp = parsed
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return filter.Apply(events), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
