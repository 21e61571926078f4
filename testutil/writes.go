package testutil

import (
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/bobg/bsync"
)

// Writes applies a random sequence of block writes and truncations
// to a store produced by storeFactory,
// mirroring each one on a plain byte slice,
// and makes sure the store's content and signatures always match the mirror.
func Writes(t *testing.T, storeFactory func(data []byte) bsync.Store) {
	if err := quick.Check(writesHelper(t, storeFactory), &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func writesHelper(t *testing.T, storeFactory func(data []byte) bsync.Store) func(initial []byte, seed int64) bool {
	return func(initial []byte, seed int64) bool {
		var (
			store  = storeFactory(initial)
			bs     = store.BlockSize()
			mirror = append([]byte(nil), initial...)
			rng    = rand.New(rand.NewSource(seed))
		)

		for step := 0; step < 10; step++ {
			if rng.Intn(4) == 0 {
				size := rng.Intn(len(mirror) + bs + 1)
				if err := store.Truncate(int64(size)); err != nil {
					t.Logf("truncating to %d: %s", size, err)
					return false
				}
				mirror = resize(mirror, size)
				continue
			}

			var (
				index = rng.Intn(bsync.NumBlocks(int64(len(mirror)), bs) + 2)
				start = index * bs
				n     = bs
			)
			if start+n > len(mirror) {
				// Writing at or past the end may produce a short last block.
				n = 1 + rng.Intn(bs)
			}
			data := make([]byte, n)
			rng.Read(data)

			if err := store.WriteBlock(index, data); err != nil {
				t.Logf("writing block %d: %s", index, err)
				return false
			}
			if start+n > len(mirror) {
				mirror = resize(mirror, start+n)
			}
			copy(mirror[start:], data)
		}

		got := Contents(t, store)
		if string(got) != string(mirror) {
			t.Logf("content mismatch: got %d bytes, want %d", len(got), len(mirror))
			return false
		}
		CheckSigs(t, store, mirror)
		return !t.Failed()
	}
}

func resize(b []byte, size int) []byte {
	if size <= len(b) {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}
