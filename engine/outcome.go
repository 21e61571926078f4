package engine

import "github.com/bobg/bsync"

// Outcome is the result of applying one instruction.
type Outcome int

const (
	OK Outcome = iota
	Unavailable
	OutOfRange
	Malformed
	IOFailure
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Unavailable:
		return "unavailable"
	case OutOfRange:
		return "out of range"
	case Malformed:
		return "malformed"
	case IOFailure:
		return "I/O failure"
	}
	return "unknown"
}

// Classify maps an error from Apply to an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case bsync.IsUnavailable(err):
		return Unavailable
	case bsync.IsOutOfRange(err):
		return OutOfRange
	case bsync.IsMalformed(err):
		return Malformed
	}
	return IOFailure
}
