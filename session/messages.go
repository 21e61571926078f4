package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/engine"
)

// Reply tokens.
const (
	// ReplyOK acknowledges an applied instruction.
	ReplyOK = "Successfully processed!"

	// ReplyUnavailable rejects a Reference to a block the receiver does not have.
	ReplyUnavailable = "BlockUnavailableException"

	// HandshakeReply confirms a handshake.
	HandshakeReply = "Finished setting up synchronization!"
)

// ErrBadHandshake is the error produced when parsing a malformed handshake.
var ErrBadHandshake = errors.New("malformed handshake")

const (
	blockSizeKey = "BlockSize"
	directionKey = "Direction"
)

// Handshake is the first message an initiating peer sends.
// Direction is from the initiator's point of view.
type Handshake struct {
	BlockSize int
	Direction bsync.Direction
}

func (h Handshake) String() string {
	return fmt.Sprintf("%s:%d;%s:%s", blockSizeKey, h.BlockSize, directionKey, h.Direction)
}

// IsHandshake tells whether line looks like a handshake rather than an instruction or reply.
func IsHandshake(line string) bool {
	return strings.HasPrefix(line, blockSizeKey+":")
}

// ParseHandshake parses a handshake line.
// It does not check the block size against bsync.MinBlockSize;
// that is up to the receiving peer.
func ParseHandshake(line string) (Handshake, error) {
	var h Handshake

	parts := strings.Split(line, ";")
	if len(parts) != 2 {
		return h, errors.Wrapf(ErrBadHandshake, "%q", line)
	}

	k, v, ok := strings.Cut(parts[0], ":")
	if !ok || k != blockSizeKey {
		return h, errors.Wrapf(ErrBadHandshake, "%q: missing %s", line, blockSizeKey)
	}
	bs, err := strconv.Atoi(v)
	if err != nil {
		return h, errors.Wrapf(ErrBadHandshake, "%q: %s", line, err)
	}

	k, v, ok = strings.Cut(parts[1], ":")
	if !ok || k != directionKey {
		return h, errors.Wrapf(ErrBadHandshake, "%q: missing %s", line, directionKey)
	}
	dir, err := bsync.ParseDirection(v)
	if err != nil {
		return h, errors.Wrapf(ErrBadHandshake, "%q: %s", line, err)
	}

	h.BlockSize = bs
	h.Direction = dir
	return h, nil
}

// ReplyFor gives the reply token for an outcome.
// Only OK and Unavailable have one;
// for anything else the receiver drops the connection without replying.
func ReplyFor(o engine.Outcome) (string, bool) {
	switch o {
	case engine.OK:
		return ReplyOK, true
	case engine.Unavailable:
		return ReplyUnavailable, true
	}
	return "", false
}

// ParseReply maps a reply token back to its outcome.
func ParseReply(line string) (engine.Outcome, error) {
	switch line {
	case ReplyOK:
		return engine.OK, nil
	case ReplyUnavailable:
		return engine.Unavailable, nil
	}
	return 0, errors.Errorf("unexpected reply %q", line)
}
