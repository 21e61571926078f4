// Package peer runs the two ends of a synchronization:
// a Client, which initiates every connection,
// and a Server, which accepts them.
//
// Either end may be the sender.
// The Client's handshake names its own direction;
// the Server takes the inverse role.
// A pushing Client sends instructions and the Server applies them.
// A pulling Client connects and waits for the Server to send an instruction,
// then applies it and replies.
// Either way the wire messages are the same.
package peer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/codec"
	"github.com/bobg/bsync/engine"
	"github.com/bobg/bsync/journal"
	"github.com/bobg/bsync/session"
)

// connError marks a failure of the connection itself,
// after which a Client repeats its handshake.
type connError struct {
	err error
}

func (e connError) Error() string { return e.err.Error() }
func (e connError) Unwrap() error { return e.err }

func isConnError(err error) bool {
	var e connError
	return errors.As(err, &e)
}

// sender is the sending half of the wire protocol.
type sender struct {
	snd  *engine.Sender
	opts Options
}

func newSender(store bsync.Store, opts Options) (*sender, error) {
	eng, err := engine.New(store, opts.HistorySize)
	if err != nil {
		return nil, err
	}
	return &sender{snd: engine.NewSender(eng), opts: opts}, nil
}

// send writes the outstanding instruction to sess.
func (s *sender) send(sess *session.Session) (bsync.Instruction, error) {
	inst, err := s.snd.Next()
	if err != nil {
		return nil, errors.Wrap(err, "generating instruction")
	}
	line, err := codec.Encode(inst)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", inst)
	}
	if err = sess.WriteLine(line); err != nil {
		return nil, connError{errors.Wrapf(err, "sending %s", inst)}
	}
	s.opts.Trace(line)
	return inst, nil
}

// settle interprets the reply to inst.
func (s *sender) settle(ctx context.Context, inst bsync.Instruction, reply string) (engine.Settlement, error) {
	s.opts.Trace(reply)

	outcome, err := session.ParseReply(reply)
	if err != nil {
		return engine.Settlement{}, connError{err}
	}

	st, err := s.snd.Settle(outcome)
	switch {
	case outcome == engine.OK:
		if lit, ok := inst.(bsync.Literal); ok {
			s.opts.record(ctx, journal.Sender, journal.KindLiteral, lit.Index, len(lit.Data))
		} else {
			s.opts.record(ctx, journal.Sender, journal.KindReference, inst.BlockIndex(), 0)
		}

	case st.Upgraded:
		s.opts.record(ctx, journal.Sender, journal.KindUpgrade, inst.BlockIndex(), 0)

	case st.Dropped:
		s.opts.record(ctx, journal.Sender, journal.KindDropped, inst.BlockIndex(), 0)
	}
	if err != nil {
		return st, errors.Wrapf(err, "settling %s", inst)
	}
	return st, nil
}

// receiver is the receiving half of the wire protocol.
type receiver struct {
	rcv  *engine.Receiver
	opts Options
}

func newReceiver(store bsync.Store, opts Options) *receiver {
	return &receiver{rcv: engine.NewReceiver(store), opts: opts}
}

// handle decodes and applies an instruction line,
// producing the reply to send.
// An error means the connection should be dropped without a reply.
func (r *receiver) handle(ctx context.Context, line string) (string, error) {
	inst, err := codec.Decode(line)
	if err != nil {
		return "", err
	}

	outcome, err := r.rcv.Handle(inst)
	switch outcome {
	case engine.OK:
		var n int
		if lit, ok := inst.(bsync.Literal); ok {
			n = len(lit.Data)
		}
		r.opts.record(ctx, journal.Receiver, journal.KindApplied, inst.BlockIndex(), n)

	case engine.Unavailable:
		r.opts.record(ctx, journal.Receiver, journal.KindUnavailable, inst.BlockIndex(), 0)

	default:
		r.opts.record(ctx, journal.Receiver, journal.KindFailed, inst.BlockIndex(), 0)
	}

	reply, ok := session.ReplyFor(outcome)
	if !ok {
		return "", errors.Wrapf(err, "applying %s (%s)", inst, outcome)
	}
	return reply, nil
}

func remote(sess *session.Session) string {
	if addr := sess.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown peer"
}
