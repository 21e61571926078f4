package engine

import "github.com/bobg/bsync"

// Receiver applies instructions to a store in the receiving role.
type Receiver struct {
	remote bsync.Store
	pool   *Pool
}

func NewReceiver(remote bsync.Store) *Receiver {
	return &Receiver{remote: remote, pool: NewPool(1)}
}

// Remote is the store the receiver applies instructions to.
func (r *Receiver) Remote() bsync.Store {
	return r.remote
}

// Handle queues inst, then applies whatever is at the front of the queue.
// The error, if any, is the one that produced the Outcome.
func (r *Receiver) Handle(inst bsync.Instruction) (Outcome, error) {
	if err := r.pool.Push(inst); err != nil {
		return IOFailure, err
	}
	next, _ := r.pool.Pop()
	err := Apply(r.remote, next)
	return Classify(err), err
}
