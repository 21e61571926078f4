package sqlite3

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bsync/journal"
)

func TestJournal(t *testing.T) {
	ctx := context.Background()

	j, err := journal.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []journal.Event{
		{At: start, Role: journal.Sender, Kind: journal.KindLiteral, Index: 0, Bytes: 100},
		{At: start.Add(time.Second), Role: journal.Sender, Kind: journal.KindLiteral, Index: 1, Bytes: 28},
		{At: start.Add(2 * time.Second), Role: journal.Sender, Kind: journal.KindReference, Index: 0},
		{At: start.Add(3 * time.Second), Role: journal.Receiver, Kind: journal.KindApplied, Index: 0, Bytes: 100},
	}
	for _, ev := range events {
		if err = j.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	s, ok := j.(journal.Summarizer)
	if !ok {
		t.Fatalf("%T is not a Summarizer", j)
	}
	got, err := s.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []journal.Count{
		{Role: journal.Receiver, Kind: journal.KindApplied, N: 1, Bytes: 100},
		{Role: journal.Sender, Kind: journal.KindLiteral, N: 2, Bytes: 128},
		{Role: journal.Sender, Kind: journal.KindReference, N: 1, Bytes: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	var replayed []journal.Event
	err = j.(journal.Lister).Events(ctx, start.Add(time.Second), func(ev journal.Event) error {
		replayed = append(replayed, ev)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(events[1:], replayed); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := journal.Open(context.Background(), "nosuchdriver", ""); err == nil {
		t.Error("got no error opening an unregistered driver")
	}
}

func TestOpenNop(t *testing.T) {
	j, err := journal.Open(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := j.(journal.Nop); !ok {
		t.Errorf("got %T, want journal.Nop", j)
	}
}
