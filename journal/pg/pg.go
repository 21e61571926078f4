// Package pg implements a Postgresql-based journal.
package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/bobg/bsync/journal"
)

var (
	_ journal.Summarizer = &Journal{}
	_ journal.Lister     = &Journal{}
)

// Journal is a Postgresql-based journal.
type Journal struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `bsync_events` table if it does not exist.
// (If it does exist, it must have the columns and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS bsync_events (
  id BIGSERIAL PRIMARY KEY,
  at TIMESTAMP WITH TIME ZONE NOT NULL,
  role TEXT NOT NULL,
  kind TEXT NOT NULL,
  idx BIGINT NOT NULL,
  bytes BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS bsync_events_role_kind_idx ON bsync_events (role, kind);
`

// New produces a new Journal using `db` for storage.
func New(ctx context.Context, db *sql.DB) (*Journal, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, errors.Wrap(err, "creating schema")
	}
	return &Journal{db: db}, nil
}

// Record adds an event to the journal.
func (j *Journal) Record(ctx context.Context, ev journal.Event) error {
	const q = `INSERT INTO bsync_events (at, role, kind, idx, bytes) VALUES ($1, $2, $3, $4, $5)`
	_, err := j.db.ExecContext(ctx, q, ev.At, ev.Role, ev.Kind, ev.Index, ev.Bytes)
	return errors.Wrapf(err, "recording %s event", ev.Kind)
}

// Summary counts the events of each role and kind.
func (j *Journal) Summary(ctx context.Context) ([]journal.Count, error) {
	const q = `SELECT role, kind, COUNT(*), COALESCE(SUM(bytes), 0) FROM bsync_events GROUP BY role, kind ORDER BY role, kind`

	var result []journal.Count
	err := sqlutil.ForQueryRows(ctx, j.db, q, func(role, kind string, n, bytes int64) {
		result = append(result, journal.Count{Role: role, Kind: kind, N: n, Bytes: bytes})
	})
	return result, errors.Wrap(err, "querying summary")
}

// Events calls f for each event recorded at or after `since`, in order.
func (j *Journal) Events(ctx context.Context, since time.Time, f func(journal.Event) error) error {
	const q = `SELECT at, role, kind, idx, bytes FROM bsync_events WHERE at >= $1 ORDER BY id`
	return sqlutil.ForQueryRows(ctx, j.db, q, since, func(at time.Time, role, kind string, idx, bytes int) error {
		return f(journal.Event{At: at, Role: role, Kind: kind, Index: idx, Bytes: bytes})
	})
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func init() {
	journal.Register("postgres", func(ctx context.Context, dsn string) (journal.Journal, error) {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		j, err := New(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return j, nil
	})
}
