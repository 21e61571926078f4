package engine

import (
	"github.com/pkg/errors"

	"github.com/bobg/bsync"
)

// State is the position of a Sender in its round-trip cycle.
type State int

const (
	// Ready means no instruction is outstanding.
	Ready State = iota

	// AwaitAck means an instruction was handed out and its outcome is pending.
	AwaitAck

	// AwaitUpgradeAck means a rejected Reference was upgraded to a Literal
	// and the Literal's outcome is pending.
	AwaitUpgradeAck
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case AwaitAck:
		return "awaiting ack"
	case AwaitUpgradeAck:
		return "awaiting upgrade ack"
	}
	return "unknown"
}

// Settlement describes what Settle did with the outstanding instruction.
type Settlement struct {
	// Upgraded means the instruction was a rejected Reference
	// and has been replaced by a Literal that Next will return.
	Upgraded bool

	// Dropped means the instruction was abandoned without being acknowledged.
	Dropped bool

	// PassComplete means the sender is Ready again
	// and the settled instruction was the last one of a pass over the file.
	PassComplete bool
}

// Sender drives an Engine through the round trip for each instruction:
//
//	Ready -> AwaitAck --ok--> Ready
//	AwaitAck --unavailable--> AwaitUpgradeAck --any outcome--> Ready
//
// An upgraded Literal is never upgraded or retried again once the receiver has answered it.
// A round trip that fails before the receiver answers changes nothing:
// Next returns the same instruction again.
type Sender struct {
	eng     *Engine
	state   State
	pending bsync.Instruction
	endPass bool
}

func NewSender(eng *Engine) *Sender {
	return &Sender{eng: eng}
}

func (s *Sender) State() State {
	return s.state
}

// Next returns the outstanding instruction,
// generating a new one if the sender is Ready.
func (s *Sender) Next() (bsync.Instruction, error) {
	if s.state != Ready {
		return s.pending, nil
	}
	inst, wrapped, err := s.eng.GenerateNext()
	if err != nil {
		return nil, err
	}
	s.pending = inst
	s.endPass = wrapped
	s.state = AwaitAck
	return inst, nil
}

// Settle advances the state machine with the receiver's answer
// to the instruction last returned by Next.
// Only OK and Unavailable are answers;
// any other outcome is an error and leaves the instruction outstanding.
func (s *Sender) Settle(outcome Outcome) (Settlement, error) {
	if s.state == Ready {
		return Settlement{}, errors.New("no instruction outstanding")
	}
	if outcome != OK && outcome != Unavailable {
		return Settlement{}, errors.Errorf("cannot settle with outcome %s", outcome)
	}

	if outcome == OK {
		s.eng.Acknowledge(s.pending)
		return s.ready(Settlement{}), nil
	}

	if s.state == AwaitUpgradeAck {
		return s.ready(Settlement{Dropped: true}), nil
	}

	lit, err := s.eng.Upgrade(s.pending)
	if err != nil {
		return s.ready(Settlement{Dropped: true}), errors.Wrapf(err, "upgrading %s", s.pending)
	}
	s.pending = lit
	s.state = AwaitUpgradeAck
	return Settlement{Upgraded: true}, nil
}

func (s *Sender) ready(st Settlement) Settlement {
	st.PassComplete = s.endPass
	s.pending = nil
	s.endPass = false
	s.state = Ready
	return st
}
