package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

// SQLiteStore keeps one row per agency in a sqlite database. Records are
// stored as JSON; captured_at as RFC 3339 text so it round-trips exactly.
type SQLiteStore struct {
	SQLiteConfig

	db *sql.DB

	TimeNow func() time.Time
}

func NewSQLiteStore(cfg ...SQLiteConfig) (*SQLiteStore, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/snapshots.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS snapshot (
    agency TEXT NOT NULL,
    records TEXT NOT NULL,
    captured_at TEXT NOT NULL,
PRIMARY KEY (agency)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &SQLiteStore{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db:      db,
		TimeNow: time.Now,
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Write(ctx context.Context, agency string, records []RawArrival) error {
	buf, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshalling records: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshot (agency, records, captured_at)
VALUES (?, ?, ?)
ON CONFLICT (agency) DO UPDATE SET
    records = excluded.records,
    captured_at = excluded.captured_at`,
		agency, string(buf), s.TimeNow().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot for %s: %w", agency, err)
	}

	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, agency string) (Snapshot, error) {
	var recordsJSON, capturedAt string
	err := s.db.QueryRowContext(ctx, `
SELECT records, captured_at FROM snapshot WHERE agency = ?`, agency,
	).Scan(&recordsJSON, &capturedAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot for %s: %w", agency, err)
	}

	var records []RawArrival
	if err := json.Unmarshal([]byte(recordsJSON), &records); err != nil {
		return Snapshot{}, &CorruptError{Agency: agency, Err: err}
	}

	captured, err := time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return Snapshot{}, &CorruptError{Agency: agency, Err: err}
	}

	return Snapshot{
		Agency:     agency,
		Records:    records,
		CapturedAt: captured,
	}, nil
}
