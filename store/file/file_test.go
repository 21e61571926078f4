package file

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/testutil"
)

func TestStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "data"), 100)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	testutil.ReadWrite(t, s, bytes.Repeat([]byte("0123456789abcdef"), 80))
}

func TestWrites(t *testing.T) {
	var (
		dir = t.TempDir()
		n   int
	)
	testutil.Writes(t, func(data []byte) bsync.Store {
		n++
		path := filepath.Join(dir, fmt.Sprintf("data%d", n))
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		s, err := Open(path, 33)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	data := bytes.Repeat([]byte("x"), 150)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.Len() != 3 {
		t.Errorf("got %d blocks, want 3", s.Len())
	}
	testutil.CheckSigs(t, s, data)

	if _, err := os.Stat(path + LockSuffix); err != nil {
		t.Errorf("lock file: %s", err)
	}
}

func TestRecompute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("hello, world"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	changed, err := s.Recompute()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("Recompute of an unchanged file reported a change")
	}

	edited := bytes.Repeat([]byte("edited "), 20)
	if err = os.WriteFile(path, edited, 0644); err != nil {
		t.Fatal(err)
	}
	// Make sure the modification time moves even on filesystems with coarse timestamps.
	later := time.Now().Add(time.Minute)
	if err = os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	changed, err = s.Recompute()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("Recompute of an edited file reported no change")
	}
	testutil.CheckSigs(t, s, edited)

	// Writes through the store do not make the next Recompute rehash.
	if err = s.WriteBlock(0, bytes.Repeat([]byte("w"), 64)); err != nil {
		t.Fatal(err)
	}
	changed, err = s.Recompute()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("Recompute after a store write reported a change")
	}
}

func TestTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	data := bytes.Repeat([]byte("abc"), 100) // 300 bytes
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err = s.Truncate(100); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data[:100]) {
		t.Errorf("got %d bytes on disk after truncating, want 100", len(got))
	}
	testutil.CheckSigs(t, s, data[:100])
}

func TestHugeIndexWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), 2048), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path, 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	testutil.HugeIndexWrite(t, s)
}
