package testutil

import (
	"bytes"
	"math/bits"
	"testing"

	"github.com/bobg/bsync"
)

// WrappingIndex is a block index whose byte offset,
// computed naively as a product in 64 bits,
// wraps around to exactly 0.
// The block size must be even.
func WrappingIndex(t *testing.T, blockSize int) int {
	t.Helper()

	tz := bits.TrailingZeros64(uint64(blockSize))
	if tz == 0 {
		t.Fatalf("block size %d is odd", blockSize)
	}
	return 1 << (64 - tz)
}

// HugeIndexWrite makes sure a store rejects a write to a block
// whose offset does not fit in an int64,
// and leaves its content and signatures alone.
func HugeIndexWrite(t *testing.T, store bsync.Store) {
	t.Helper()

	before := Contents(t, store)
	data := bytes.Repeat([]byte("Z"), store.BlockSize())

	for _, index := range []int{WrappingIndex(t, store.BlockSize()), WrappingIndex(t, store.BlockSize()) / 2} {
		err := store.WriteBlock(index, data)
		if !bsync.IsOutOfRange(err) {
			t.Errorf("writing block %d: got error %v, want out of range", index, err)
		}
	}

	if got := Contents(t, store); !bytes.Equal(got, before) {
		t.Errorf("content changed to %q", got)
	}
	CheckSigs(t, store, before)
}
