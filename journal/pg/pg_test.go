package pg

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/bobg/bsync/journal"
)

const connVar = "BSYNC_PG_TESTING_CONN"

func TestJournal(t *testing.T) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	j, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	before, err := j.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}

	ev := journal.Event{At: time.Now(), Role: journal.Receiver, Kind: journal.KindApplied, Index: 3, Bytes: 17}
	if err = j.Record(ctx, ev); err != nil {
		t.Fatal(err)
	}

	after, err := j.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := applied(after), applied(before)+1; got != want {
		t.Errorf("got %d applied events, want %d", got, want)
	}
}

func applied(counts []journal.Count) int64 {
	for _, c := range counts {
		if c.Role == journal.Receiver && c.Kind == journal.KindApplied {
			return c.N
		}
	}
	return 0
}
