// Package file implements a block store over a file on disk.
package file

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/bobg/flock"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"

	"github.com/bobg/bsync"
)

var _ bsync.Store = &Store{}

// Store is a file-based implementation of a block store.
//
// Signatures are computed from the file's content when the store is opened
// and whenever Recompute notices that the file's size or modification time changed.
// Writes through the store update the affected signatures directly.
//
// While a Store is open it holds an advisory lock on a companion file,
// so two processes cannot synchronize the same file at once.
type Store struct {
	path      string
	blockSize int
	flocker   flock.Locker

	mu      sync.Mutex // protects the fields below
	scanned bool
	size    int64
	modTime time.Time
	tab     bsync.Table
}

// LockSuffix is appended to a file's path to name its lock file.
const LockSuffix = ".bsync-lock"

// Open opens the file at `path`, creating it if necessary,
// and computes its block signatures.
func Open(path string, blockSize int) (*Store, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("invalid block size %d", blockSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	if err = f.Close(); err != nil {
		return nil, errors.Wrapf(err, "closing %s", path)
	}

	s := &Store{path: path, blockSize: blockSize}
	if err = s.flocker.Lock(s.lockPath()); err != nil {
		return nil, errors.Wrapf(err, "locking %s", path)
	}
	if _, err = s.Recompute(); err != nil {
		s.flocker.Unlock(s.lockPath())
		return nil, err
	}
	return s, nil
}

// Close releases the store's lock.
func (s *Store) Close() error {
	return s.flocker.Unlock(s.lockPath())
}

// Path is the path of the underlying file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) lockPath() string {
	return s.path + LockSuffix
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

// Recompute stats the file and,
// if its size or modification time changed since the signatures were last computed,
// memory-maps it and recomputes all of them.
func (s *Store) Recompute() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	if err != nil {
		return false, errors.Wrapf(err, "statting %s", s.path)
	}
	if s.scanned && fi.Size() == s.size && fi.ModTime().Equal(s.modTime) {
		return false, nil
	}
	if err = s.rescan(fi.ModTime()); err != nil {
		return false, err
	}
	return true, nil
}

// Caller must obtain a lock.
func (s *Store) rescan(modTime time.Time) error {
	m, err := mmap.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "mapping %s", s.path)
	}
	defer m.Close()

	size := int64(m.Len())
	blocks, err := bsync.Slice(m, size, s.blockSize)
	if err != nil {
		return errors.Wrapf(err, "slicing %s", s.path)
	}
	s.tab.Replace(blocks)
	s.size = size
	s.modTime = modTime
	s.scanned = true
	return nil
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

	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.path)
	}
	defer f.Close()

	buf := make([]byte, blk.Length)
	n, err := f.ReadAt(buf, int64(index)*int64(s.blockSize))
	if n < len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "reading block %d of %s", index, s.path)
	}
	return buf, nil
}

// WriteBlock writes data at the offset of block `index`,
// extending the file if necessary.
// The block's signature is updated only after the write succeeds.
// If the write fails,
// the signatures are recomputed from whatever is on disk.
func (s *Store) WriteBlock(index int, data []byte) error {
	offset, ok := bsync.Offset(index, s.blockSize)
	if !ok {
		return &bsync.BlockOutOfRangeError{Index: index, Len: s.Len()}
	}
	if len(data) > s.blockSize {
		return errors.Errorf("writing %d bytes to block %d exceeds block size %d", len(data), index, s.blockSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", s.path)
	}
	defer f.Close()

	if _, err = f.WriteAt(data, offset); err != nil {
		s.rebuild()
		return errors.Wrapf(err, "writing block %d of %s", index, s.path)
	}

	return s.refresh(f, index, index)
}

// Truncate changes the size of the file.
func (s *Store) Truncate(size int64) error {
	if size < 0 {
		return errors.Errorf("invalid size %d", size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", s.path)
	}
	defer f.Close()

	if err = f.Truncate(size); err != nil {
		s.rebuild()
		return errors.Wrapf(err, "truncating %s to %d bytes", s.path, size)
	}

	last := bsync.NumBlocks(size, s.blockSize) - 1
	return s.refresh(f, last, last)
}

// Caller must obtain a lock.
func (s *Store) refresh(f *os.File, lo, hi int) error {
	fi, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "statting %s", s.path)
	}
	if err = s.tab.Refresh(f, fi.Size(), s.blockSize, lo, hi); err != nil {
		s.rebuild()
		return errors.Wrapf(err, "recomputing signatures for %s", s.path)
	}
	s.size = fi.Size()
	s.modTime = fi.ModTime()
	return nil
}

// rebuild recomputes the signatures from disk after a failed operation,
// or marks them stale if even that fails.
// Caller must obtain a lock.
func (s *Store) rebuild() {
	fi, err := os.Stat(s.path)
	if err == nil {
		err = s.rescan(fi.ModTime())
	}
	if err != nil {
		s.scanned = false
	}
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
