// Package engine decides what to send for each block of a file
// and applies what was sent.
package engine

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/bsync"
)

// DefaultHistorySize is the default number of acknowledged block signatures an Engine remembers.
const DefaultHistorySize = 1 << 16

// ErrUnstable is the error produced when the local file keeps changing
// while an instruction for one of its blocks is being generated.
var ErrUnstable = errors.New("local file changed during instruction generation")

const maxAttempts = 3

// Engine generates instructions from a local store in the sending role.
//
// For every block index it remembers the signature that the receiver last acknowledged.
// A block whose current signature matches that record is sent as a Reference,
// anything else as a Literal.
// The record is an LRU cache, so forgetting an index only costs a Literal.
type Engine struct {
	local bsync.Store
	acked *lru.Cache // int -> bsync.Sig
}

// New produces a new Engine for the given local store,
// remembering up to `historySize` acknowledged signatures.
func New(local bsync.Store, historySize int) (*Engine, error) {
	c, err := lru.New(historySize)
	if err != nil {
		return nil, errors.Wrap(err, "creating signature history")
	}
	return &Engine{local: local, acked: c}, nil
}

// Local is the store the engine generates instructions from.
func (e *Engine) Local() bsync.Store {
	return e.local
}

// GenerateNext produces the instruction for the block at the local store's cursor
// and then advances the cursor.
// It reports whether the cursor wrapped,
// meaning the instruction completes a pass over the file.
//
// An empty file produces an empty Literal for block 0,
// which tells the receiver to truncate its own file to nothing.
func (e *Engine) GenerateNext() (inst bsync.Instruction, wrapped bool, err error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		size := e.local.Size()
		index, ok := e.local.NextIndex()
		if !ok {
			if size == 0 {
				return bsync.Literal{Index: 0, Size: 0}, true, nil
			}
			continue
		}

		blk, ok := e.local.BlockAt(index)
		if !ok || blk.Length != bsync.BlockLength(index, size, e.local.BlockSize()) {
			continue
		}

		if sig, ok := e.ackedSig(index); ok && sig == blk.Sig {
			inst = bsync.Reference{Index: index, Size: size}
		} else {
			lit, err := e.literal(index, size, blk.Length)
			if bsync.IsOutOfRange(err) || errors.Is(err, ErrUnstable) {
				continue
			}
			if err != nil {
				return nil, false, err
			}
			inst = lit
		}

		return inst, e.local.AdvanceCursor(), nil
	}
	return nil, false, ErrUnstable
}

// Acknowledge records that the receiver accepted inst.
func (e *Engine) Acknowledge(inst bsync.Instruction) {
	if lit, ok := inst.(bsync.Literal); ok {
		e.acked.Add(lit.Index, bsync.Sum(lit.Data))
	}
}

// Upgrade converts a Reference that the receiver rejected
// into a Literal carrying the local store's current bytes for the same block.
// It returns ErrInvalidUpgrade for anything but a Reference,
// and a *bsync.BlockOutOfRangeError if the block no longer exists locally.
func (e *Engine) Upgrade(prev bsync.Instruction) (bsync.Literal, error) {
	ref, ok := prev.(bsync.Reference)
	if !ok {
		return bsync.Literal{}, errors.Wrapf(bsync.ErrInvalidUpgrade, "upgrading %s", prev)
	}

	// The receiver evidently does not hold what was acknowledged.
	e.acked.Remove(ref.Index)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		size := e.local.Size()
		length := bsync.BlockLength(ref.Index, size, e.local.BlockSize())
		if length == 0 {
			return bsync.Literal{}, &bsync.BlockOutOfRangeError{Index: ref.Index, Len: bsync.NumBlocks(size, e.local.BlockSize())}
		}
		lit, err := e.literal(ref.Index, size, length)
		if errors.Is(err, ErrUnstable) {
			continue
		}
		return lit, err
	}
	return bsync.Literal{}, ErrUnstable
}

// literal reads block `index` from the local store
// and checks that it still has the length implied by `size`.
func (e *Engine) literal(index int, size int64, length int) (bsync.Literal, error) {
	data, err := e.local.ReadBlock(index)
	if err != nil {
		return bsync.Literal{}, err
	}
	if len(data) != length || e.local.Size() != size {
		return bsync.Literal{}, ErrUnstable
	}
	return bsync.Literal{Index: index, Size: size, Data: data}, nil
}

func (e *Engine) ackedSig(index int) (bsync.Sig, bool) {
	got, ok := e.acked.Get(index)
	if !ok {
		return bsync.Zero, false
	}
	return got.(bsync.Sig), true
}

// Apply carries out inst against the receiving store.
//
// A Reference succeeds only if the block exists
// and has the length the sender's file size implies;
// otherwise the result is a *bsync.BlockUnavailableError.
// A Literal is written unconditionally.
// Either way, a receiving file longer than the sender's is then truncated to match.
func Apply(remote bsync.Store, inst bsync.Instruction) error {
	var (
		index = inst.BlockIndex()
		size  = inst.FileSize()
		bs    = remote.BlockSize()
	)

	if _, ok := bsync.Offset(index, bs); !ok {
		return errors.Wrapf(bsync.ErrMalformedInstruction, "block index %d out of range for block size %d", index, bs)
	}

	switch inst := inst.(type) {
	case bsync.Reference:
		blk, ok := remote.BlockAt(index)
		if !ok || blk.Length != bsync.BlockLength(index, size, bs) {
			return &bsync.BlockUnavailableError{Index: index}
		}

	case bsync.Literal:
		if len(inst.Data) != bsync.BlockLength(index, size, bs) {
			return errors.Wrapf(bsync.ErrMalformedInstruction, "%d bytes for block %d of a %d-byte file with block size %d", len(inst.Data), index, size, bs)
		}
		if len(inst.Data) > 0 {
			if err := remote.WriteBlock(index, inst.Data); err != nil {
				return errors.Wrapf(err, "writing block %d", index)
			}
		}

	default:
		return errors.Wrapf(bsync.ErrMalformedInstruction, "unknown instruction type %T", inst)
	}

	if remote.Size() > size {
		if err := remote.Truncate(size); err != nil {
			return errors.Wrapf(err, "truncating to %d bytes", size)
		}
	}
	return nil
}
