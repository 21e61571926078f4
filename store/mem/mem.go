// Package mem implements an in-memory block store.
package mem

import (
	"bytes"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
)

var _ bsync.Store = &Store{}

// Store is a memory-based implementation of a block store.
type Store struct {
	blockSize int

	mu    sync.Mutex // protects the fields below
	data  []byte
	dirty bool
	size  int64 // as of the last Recompute or write
	tab   bsync.Table
}

// New produces a new Store holding a copy of `data`.
func New(data []byte, blockSize int) (*Store, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("invalid block size %d", blockSize)
	}
	s := &Store{
		blockSize: blockSize,
		data:      append([]byte(nil), data...),
		size:      int64(len(data)),
	}
	blocks, err := bsync.Slice(bytes.NewReader(s.data), int64(len(s.data)), blockSize)
	if err != nil {
		return nil, errors.Wrap(err, "slicing initial data")
	}
	s.tab.Replace(blocks)
	return s, nil
}

// Bytes returns a copy of the store's content.
func (s *Store) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Set replaces the store's content,
// as if the file had been edited by someone else.
// The change is not reflected in the block signatures until the next Recompute.
func (s *Store) Set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.dirty = true
}

func (s *Store) BlockSize() int {
	return s.blockSize
}

func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.Len()
}

// Recompute reslices the content if it was replaced with Set since the last Recompute.
func (s *Store) Recompute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return false, nil
	}
	blocks, err := bsync.Slice(bytes.NewReader(s.data), int64(len(s.data)), s.blockSize)
	if err != nil {
		return false, err
	}
	s.tab.Replace(blocks)
	s.size = int64(len(s.data))
	s.dirty = false
	return true, nil
}

func (s *Store) SignatureAt(index int) (bsync.Sig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blk, ok := s.tab.At(index)
	return blk.Sig, ok
}

func (s *Store) BlockAt(index int) (bsync.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.At(index)
}

func (s *Store) ReadBlock(index int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blk, ok := s.tab.At(index)
	if !ok {
		return nil, &bsync.BlockOutOfRangeError{Index: index, Len: s.tab.Len()}
	}
	start := index * s.blockSize
	end := start + blk.Length
	if end > len(s.data) {
		// Content was replaced with Set and has not been recomputed yet.
		end = len(s.data)
	}
	if start > end {
		start = end
	}
	return append([]byte(nil), s.data[start:end]...), nil
}

func (s *Store) WriteBlock(index int, data []byte) error {
	offset, ok := bsync.Offset(index, s.blockSize)
	if !ok || offset > int64(math.MaxInt-s.blockSize) {
		return &bsync.BlockOutOfRangeError{Index: index, Len: s.Len()}
	}
	if len(data) > s.blockSize {
		return errors.Errorf("writing %d bytes to block %d exceeds block size %d", len(data), index, s.blockSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := int(offset)
	if end := start + len(data); end > len(s.data) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[start:], data)

	return s.refresh(index, index)
}

func (s *Store) Truncate(size int64) error {
	if size < 0 {
		return errors.Errorf("invalid size %d", size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if size <= int64(len(s.data)) {
		s.data = s.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, s.data)
		s.data = grown
	}
	last := bsync.NumBlocks(size, s.blockSize) - 1
	return s.refresh(last, last)
}

// Caller must obtain a lock.
func (s *Store) refresh(lo, hi int) error {
	s.size = int64(len(s.data))
	err := s.tab.Refresh(bytes.NewReader(s.data), int64(len(s.data)), s.blockSize, lo, hi)
	return errors.Wrap(err, "recomputing signatures")
}

func (s *Store) NextIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.Next()
}

func (s *Store) AdvanceCursor() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.Advance()
}
