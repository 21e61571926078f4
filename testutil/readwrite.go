package testutil

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bsync"
)

// ReadWrite permits testing a Store implementation
// by writing some data to it block by block,
// then reading it back out to make sure it's the same
// and that every block carries the right signature.
// The store should be empty and use a block size that does not evenly divide len(data),
// so that the partial last block gets exercised.
func ReadWrite(t *testing.T, store bsync.Store, data []byte) {
	bs := store.BlockSize()

	t1 := time.Now()
	for i := 0; i < bsync.NumBlocks(int64(len(data)), bs); i++ {
		start := i * bs
		end := start + bs
		if end > len(data) {
			end = len(data)
		}
		if err := store.WriteBlock(i, data[start:end]); err != nil {
			t.Fatal(err)
		}
	}
	t.Logf("wrote %d bytes in %s", len(data), time.Since(t1))

	if got := store.Size(); got != int64(len(data)) {
		t.Errorf("got size %d, want %d", got, len(data))
	}

	t2 := time.Now()
	got := Contents(t, store)
	t.Logf("read %d bytes in %s", len(got), time.Since(t2))

	if !bytes.Equal(got, data) {
		t.Fatalf("content mismatch: got %d bytes, want %d", len(got), len(data))
	}

	CheckSigs(t, store, data)
}

// Contents reads every block of store and concatenates them.
func Contents(t *testing.T, store bsync.Store) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	for i := 0; i < store.Len(); i++ {
		b, err := store.ReadBlock(i)
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(b)
	}
	return buf.Bytes()
}

// CheckSigs makes sure the block descriptors in store are exactly those of data.
func CheckSigs(t *testing.T, store bsync.Store, data []byte) {
	t.Helper()

	want, err := bsync.Slice(bytes.NewReader(data), int64(len(data)), store.BlockSize())
	if err != nil {
		t.Fatal(err)
	}
	got := make([]bsync.Block, 0, store.Len())
	for i := 0; i < store.Len(); i++ {
		blk, ok := store.BlockAt(i)
		if !ok {
			t.Fatalf("no block %d of %d", i, store.Len())
		}
		got = append(got, blk)
		if sig, _ := store.SignatureAt(i); sig != blk.Sig {
			t.Errorf("block %d: SignatureAt gives %s, BlockAt gives %s", i, sig, blk.Sig)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("block mismatch (-want +got):\n%s", diff)
	}
}
