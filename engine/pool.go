package engine

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
)

// ErrPoolFull is the error produced when pushing onto a full Pool.
var ErrPoolFull = errors.New("instruction pool full")

// Pool is a bounded FIFO of instructions awaiting application.
// With one instruction in flight per connection it never holds more than one.
type Pool struct {
	mu    sync.Mutex
	cap   int
	items []bsync.Instruction
}

// NewPool produces a Pool holding up to `capacity` instructions.
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{cap: capacity}
}

// Push adds inst to the end of the pool.
func (p *Pool) Push(inst bsync.Instruction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) >= p.cap {
		return ErrPoolFull
	}
	p.items = append(p.items, inst)
	return nil
}

// Pop removes and returns the instruction at the front of the pool,
// or false if the pool is empty.
func (p *Pool) Pop() (bsync.Instruction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return nil, false
	}
	inst := p.items[0]
	p.items[0] = nil
	p.items = p.items[1:]
	return inst, true
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
