package bsync

import "fmt"

// Instruction tells a receiver how to update one block of its file.
// The set of instructions is closed:
// it is either a Reference or a Literal.
type Instruction interface {
	// BlockIndex is the index of the block the instruction is about.
	BlockIndex() int

	// FileSize is the length of the sender's file when the instruction was generated.
	FileSize() int64

	isInstruction()
}

// Reference asserts that the receiver's block already holds the right content.
type Reference struct {
	Index int
	Size  int64
}

// Literal tells the receiver to overwrite a block with Data.
type Literal struct {
	Index int
	Size  int64
	Data  []byte
}

var (
	_ Instruction = Reference{}
	_ Instruction = Literal{}
)

func (r Reference) BlockIndex() int { return r.Index }
func (r Reference) FileSize() int64 { return r.Size }
func (Reference) isInstruction()    {}

func (r Reference) String() string {
	return fmt.Sprintf("Reference{%d, size %d}", r.Index, r.Size)
}

func (l Literal) BlockIndex() int { return l.Index }
func (l Literal) FileSize() int64 { return l.Size }
func (Literal) isInstruction()    {}

func (l Literal) String() string {
	return fmt.Sprintf("Literal{%d, size %d, %d bytes}", l.Index, l.Size, len(l.Data))
}
