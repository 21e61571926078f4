// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"io"
	"log"

	"github.com/bobg/bsync"
)

var _ bsync.Store = &Store{}

type Store struct {
	s      bsync.Store
	logger *log.Logger
}

// New produces a Store that logs to logger,
// or to the standard logger if logger is nil.
func New(s bsync.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{s: s, logger: logger}
}

func (s *Store) BlockSize() int {
	return s.s.BlockSize()
}

func (s *Store) Size() int64 {
	return s.s.Size()
}

func (s *Store) Len() int {
	return s.s.Len()
}

func (s *Store) Recompute() (bool, error) {
	changed, err := s.s.Recompute()
	if err != nil {
		s.logger.Printf("ERROR in Recompute: %s", err)
	} else if changed {
		s.logger.Printf("Recompute: %d bytes, %d blocks", s.s.Size(), s.s.Len())
	}
	return changed, err
}

func (s *Store) SignatureAt(index int) (bsync.Sig, bool) {
	return s.s.SignatureAt(index)
}

func (s *Store) BlockAt(index int) (bsync.Block, bool) {
	return s.s.BlockAt(index)
}

func (s *Store) ReadBlock(index int) ([]byte, error) {
	b, err := s.s.ReadBlock(index)
	if err != nil {
		s.logger.Printf("ERROR in ReadBlock(%d): %s", index, err)
	} else {
		s.logger.Printf("ReadBlock(%d): %d bytes", index, len(b))
	}
	return b, err
}

func (s *Store) WriteBlock(index int, data []byte) error {
	err := s.s.WriteBlock(index, data)
	if err != nil {
		s.logger.Printf("ERROR in WriteBlock(%d, %d bytes): %s", index, len(data), err)
	} else {
		s.logger.Printf("WriteBlock(%d, %d bytes)", index, len(data))
	}
	return err
}

func (s *Store) Truncate(size int64) error {
	err := s.s.Truncate(size)
	if err != nil {
		s.logger.Printf("ERROR in Truncate(%d): %s", size, err)
	} else {
		s.logger.Printf("Truncate(%d)", size)
	}
	return err
}

func (s *Store) NextIndex() (int, bool) {
	return s.s.NextIndex()
}

func (s *Store) AdvanceCursor() bool {
	wrapped := s.s.AdvanceCursor()
	if wrapped {
		s.logger.Printf("AdvanceCursor: wrapped after %d blocks", s.s.Len())
	}
	return wrapped
}

// Close closes the nested store if it is an io.Closer.
func (s *Store) Close() error {
	if c, ok := s.s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
