// Package sqlite3 implements a Sqlite-based journal.
package sqlite3

import (
	"context"
	"database/sql"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/bsync/journal"
)

var (
	_ journal.Summarizer = &Journal{}
	_ journal.Lister     = &Journal{}
)

// Journal is a Sqlite-based journal.
type Journal struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `events` table if it does not exist.
// (If it does exist, it must have the columns and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  at TEXT NOT NULL,
  role TEXT NOT NULL,
  kind TEXT NOT NULL,
  idx INTEGER NOT NULL,
  bytes INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS events_role_kind_idx ON events (role, kind);
`

// New produces a new Journal using `db` for storage.
func New(ctx context.Context, db *sql.DB) (*Journal, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, errors.Wrap(err, "creating schema")
	}
	return &Journal{db: db}, nil
}

// Times are stored as fixed-width UTC text so that they sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Record adds an event to the journal.
func (j *Journal) Record(ctx context.Context, ev journal.Event) error {
	const q = `INSERT INTO events (at, role, kind, idx, bytes) VALUES ($1, $2, $3, $4, $5)`
	_, err := j.db.ExecContext(ctx, q, ev.At.UTC().Format(timeFormat), ev.Role, ev.Kind, ev.Index, ev.Bytes)
	return errors.Wrapf(err, "recording %s event", ev.Kind)
}

// Summary counts the events of each role and kind.
func (j *Journal) Summary(ctx context.Context) ([]journal.Count, error) {
	const q = `SELECT role, kind, COUNT(*), COALESCE(SUM(bytes), 0) FROM events GROUP BY role, kind ORDER BY role, kind`

	var result []journal.Count
	err := sqlutil.ForQueryRows(ctx, j.db, q, func(role, kind string, n, bytes int64) {
		result = append(result, journal.Count{Role: role, Kind: kind, N: n, Bytes: bytes})
	})
	return result, errors.Wrap(err, "querying summary")
}

// Events calls f for each event recorded at or after `since`, in order.
func (j *Journal) Events(ctx context.Context, since time.Time, f func(journal.Event) error) error {
	const q = `SELECT at, role, kind, idx, bytes FROM events WHERE at >= $1 ORDER BY id`
	return sqlutil.ForQueryRows(ctx, j.db, q, since.UTC().Format(timeFormat), func(atstr, role, kind string, idx, bytes int) error {
		at, err := time.Parse(timeFormat, atstr)
		if err != nil {
			return errors.Wrapf(err, "parsing time %s", atstr)
		}
		return f(journal.Event{At: at, Role: role, Kind: kind, Index: idx, Bytes: bytes})
	})
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func init() {
	journal.Register("sqlite3", func(ctx context.Context, dsn string) (journal.Journal, error) {
		db, err := sql.Open("sqlite3", dsn)
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
