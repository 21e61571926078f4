package mem

import (
	"bytes"
	"testing"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/testutil"
)

func TestStore(t *testing.T) {
	s, err := New(nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	testutil.ReadWrite(t, s, bytes.Repeat([]byte("0123456789abcdef"), 80)) // 1280 bytes, 13 blocks
}

func TestWrites(t *testing.T) {
	testutil.Writes(t, func(data []byte) bsync.Store {
		s, err := New(data, 33)
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}

func TestSetRecompute(t *testing.T) {
	s, err := New([]byte("hello, world"), 64)
	if err != nil {
		t.Fatal(err)
	}
	before, _ := s.SignatureAt(0)

	s.Set([]byte("goodbye, world"))
	if sig, _ := s.SignatureAt(0); sig != before {
		t.Error("signature changed before Recompute")
	}
	if s.Size() != 12 {
		t.Errorf("got size %d before Recompute, want 12", s.Size())
	}

	changed, err := s.Recompute()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("Recompute reported no change after Set")
	}
	if sig, _ := s.SignatureAt(0); sig != bsync.Sum([]byte("goodbye, world")) {
		t.Errorf("got signature %s after Recompute", sig)
	}
	if s.Size() != 14 {
		t.Errorf("got size %d after Recompute, want 14", s.Size())
	}

	changed, err = s.Recompute()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second Recompute reported a change")
	}
}

func TestReadOutOfRange(t *testing.T) {
	s, err := New([]byte("abc"), 64)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.ReadBlock(1)
	if !bsync.IsOutOfRange(err) {
		t.Errorf("got error %v, want out of range", err)
	}
}

func TestHugeIndexWrite(t *testing.T) {
	s, err := New(bytes.Repeat([]byte("a"), 250), 100)
	if err != nil {
		t.Fatal(err)
	}
	testutil.HugeIndexWrite(t, s)
}
