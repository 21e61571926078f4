package bsync

import (
	"fmt"

	"github.com/pkg/errors"
)

// Store holds a file divided into blocks,
// together with the signature of each block
// and a cursor for walking the blocks in order.
//
// All methods are safe for concurrent use.
// Implementations serialize them under a single lock,
// so a Recompute running in one goroutine
// never interleaves with a WriteBlock or AdvanceCursor in another.
type Store interface {
	// BlockSize is the fixed size of every block but the last.
	BlockSize() int

	// Size is the length of the file as of the last Recompute or write.
	Size() int64

	// Len is the number of blocks.
	Len() int

	// Recompute rereads the file's metadata,
	// and if the size or modification time changed,
	// reslices the file and recomputes every signature.
	// The cursor is reset to 0 only if it no longer points at a block.
	Recompute() (changed bool, err error)

	// SignatureAt returns the stored signature of a block,
	// or false if there is no such block.
	SignatureAt(index int) (Sig, bool)

	// BlockAt returns the descriptor of a block,
	// or false if there is no such block.
	BlockAt(index int) (Block, bool)

	// ReadBlock reads a block's bytes from the underlying file.
	// It returns a *BlockOutOfRangeError if there is no such block.
	ReadBlock(index int) ([]byte, error)

	// WriteBlock writes data at offset index*BlockSize,
	// extending the file if necessary,
	// and updates the block's signature.
	WriteBlock(index int, data []byte) error

	// Truncate shrinks (or extends) the file to the given size.
	Truncate(size int64) error

	// NextIndex returns the cursor,
	// or false if the file has no blocks.
	NextIndex() (int, bool)

	// AdvanceCursor moves the cursor to the next block,
	// wrapping to 0 after the last block.
	// It reports whether the cursor wrapped.
	AdvanceCursor() (wrapped bool)
}

// BlockUnavailableError is the error produced when a Reference names a block
// that the receiver no longer has.
// It is recoverable:
// the sender answers it by upgrading the reference to a literal.
type BlockUnavailableError struct {
	Index int
}

func (e *BlockUnavailableError) Error() string {
	return fmt.Sprintf("block %d unavailable", e.Index)
}

// BlockOutOfRangeError is the error produced when reading a block past the end of a file.
// Unlike BlockUnavailableError it indicates a local bug,
// not a race with the remote peer.
type BlockOutOfRangeError struct {
	Index int
	Len   int
}

func (e *BlockOutOfRangeError) Error() string {
	return fmt.Sprintf("block %d out of range (%d blocks)", e.Index, e.Len)
}

var (
	// ErrMalformedInstruction is the error produced when an instruction cannot be decoded
	// or is inconsistent with the receiving store.
	ErrMalformedInstruction = errors.New("malformed instruction")

	// ErrInvalidUpgrade is the error produced when asked to upgrade anything but a Reference.
	ErrInvalidUpgrade = errors.New("only a reference instruction can be upgraded")
)

// IsUnavailable tells whether err is or wraps a *BlockUnavailableError.
func IsUnavailable(err error) bool {
	var e *BlockUnavailableError
	return errors.As(err, &e)
}

// IsOutOfRange tells whether err is or wraps a *BlockOutOfRangeError.
func IsOutOfRange(err error) bool {
	var e *BlockOutOfRangeError
	return errors.As(err, &e)
}

// IsMalformed tells whether err is or wraps ErrMalformedInstruction.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInstruction)
}
