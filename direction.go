package bsync

import "fmt"

// Direction says which way a file flows from the point of view of the peer that opens connections.
type Direction string

const (
	// Push sends the initiator's file to the responder.
	Push Direction = "push"

	// Pull fetches the responder's file to the initiator.
	Pull Direction = "pull"
)

// ParseDirection parses "push" or "pull".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Push, Pull:
		return d, nil
	}
	return "", fmt.Errorf("direction must be %q or %q, got %q", Push, Pull, s)
}

// Invert gives the direction as seen from the other peer.
func (d Direction) Invert() Direction {
	if d == Push {
		return Pull
	}
	return Push
}

// Sends tells whether a peer in direction d is the sender of instructions.
func (d Direction) Sends() bool {
	return d == Push
}
