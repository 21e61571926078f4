package bsync

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// MinBlockSize is the exclusive lower bound on block sizes.
const MinBlockSize = 32

// Block describes one block of a file.
type Block struct {
	Index  int
	Length int
	Sig    Sig
}

// NumBlocks is the number of blocks in a file of the given size.
func NumBlocks(size int64, blockSize int) int {
	if size <= 0 {
		return 0
	}
	bs := int64(blockSize)
	return int((size + bs - 1) / bs)
}

// BlockLength is the length of block `index` in a file of the given size.
// It is blockSize for every block but the last,
// which may be shorter.
// It is 0 for blocks that do not exist.
func BlockLength(index int, size int64, blockSize int) int {
	start, ok := Offset(index, blockSize)
	if !ok || start >= size {
		return 0
	}
	if rem := size - start; rem < int64(blockSize) {
		return int(rem)
	}
	return blockSize
}

// Offset is the byte offset of block `index`.
// It reports false if index is negative
// or if the block would extend past the largest representable offset.
func Offset(index int, blockSize int) (int64, bool) {
	if index < 0 || blockSize <= 0 || int64(index) >= math.MaxInt64/int64(blockSize) {
		return 0, false
	}
	return int64(index) * int64(blockSize), true
}

// Slice partitions the first `size` bytes of r into blocks,
// computing the signature of each.
func Slice(r io.ReaderAt, size int64, blockSize int) ([]Block, error) {
	n := NumBlocks(size, blockSize)
	blocks := make([]Block, 0, n)
	buf := make([]byte, blockSize)
	for i := 0; i < n; i++ {
		blk, err := sliceOne(r, buf, i, size, blockSize)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

func sliceOne(r io.ReaderAt, buf []byte, index int, size int64, blockSize int) (Block, error) {
	length := BlockLength(index, size, blockSize)
	b := buf[:length]
	n, err := r.ReadAt(b, int64(index)*int64(blockSize))
	if n < length {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return Block{}, errors.Wrapf(err, "reading block %d", index)
	}
	return Block{Index: index, Length: length, Sig: Sum(b)}, nil
}

// Table is an ordered list of block descriptors plus a cursor.
// It is the in-memory state that Store implementations share between their operations.
// Table does no locking of its own;
// callers must hold the lock that protects it.
type Table struct {
	Blocks []Block
	Cursor int
}

// Len is the number of blocks.
func (t *Table) Len() int {
	return len(t.Blocks)
}

// At returns the descriptor for block `index`.
func (t *Table) At(index int) (Block, bool) {
	if index < 0 || index >= len(t.Blocks) {
		return Block{}, false
	}
	return t.Blocks[index], true
}

// Next returns the cursor,
// or false if there are no blocks.
func (t *Table) Next() (int, bool) {
	if len(t.Blocks) == 0 {
		return 0, false
	}
	return t.Cursor, true
}

// Advance moves the cursor to the next block,
// wrapping to 0 after the last one.
// It reports whether the cursor wrapped.
func (t *Table) Advance() bool {
	t.Cursor++
	if t.Cursor >= len(t.Blocks) {
		t.Cursor = 0
		return true
	}
	return false
}

// Refresh recomputes the descriptors for blocks lo through hi,
// plus any block beyond the end of the current list
// or whose length no longer fits the new size,
// after the file behind r changed to the given size.
// Other descriptors are kept as they are.
func (t *Table) Refresh(r io.ReaderAt, size int64, blockSize int, lo, hi int) error {
	n := NumBlocks(size, blockSize)
	blocks := make([]Block, 0, n)
	buf := make([]byte, blockSize)
	for i := 0; i < n; i++ {
		if i < len(t.Blocks) && (i < lo || i > hi) && t.Blocks[i].Length == BlockLength(i, size, blockSize) {
			blocks = append(blocks, t.Blocks[i])
			continue
		}
		blk, err := sliceOne(r, buf, i, size, blockSize)
		if err != nil {
			return err
		}
		blocks = append(blocks, blk)
	}
	t.Replace(blocks)
	return nil
}

// Replace installs a new block list.
// The cursor is kept unless it no longer points at a block.
func (t *Table) Replace(blocks []Block) {
	t.Blocks = blocks
	if t.Cursor >= len(blocks) {
		t.Cursor = 0
	}
}
