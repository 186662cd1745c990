package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore keeps one row per agency in a Postgres database. Layout
// matches the sqlite store: records as JSON, captured_at as RFC 3339 text.
type PostgresStore struct {
	db *sql.DB

	TimeNow func() time.Time
}

// NewPostgresStore connects to Postgres and makes sure the snapshot table
// exists. With clearDB set, existing snapshots are dropped first.
func NewPostgresStore(connStr string, clearDB bool) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`DROP TABLE IF EXISTS snapshot`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("dropping snapshot table: %w", err)
		}
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

	return &PostgresStore{
		db:      db,
		TimeNow: time.Now,
	}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Write(ctx context.Context, agency string, records []RawArrival) error {
	buf, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshalling records: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshot (agency, records, captured_at)
VALUES ($1, $2, $3)
ON CONFLICT (agency) DO UPDATE SET
    records = EXCLUDED.records,
    captured_at = EXCLUDED.captured_at`,
		agency, string(buf), s.TimeNow().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot for %s: %w", agency, err)
	}

	return nil
}

func (s *PostgresStore) Read(ctx context.Context, agency string) (Snapshot, error) {
	var recordsJSON, capturedAt string
	err := s.db.QueryRowContext(ctx, `
SELECT records, captured_at FROM snapshot WHERE agency = $1`, agency,
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
