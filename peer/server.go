package peer

import (
	"context"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/journal"
	"github.com/bobg/bsync/session"
	"github.com/bobg/bsync/watcher"
)

// Opener opens the Server's local file with the block size a Client proposes.
type Opener func(blockSize int) (bsync.Store, error)

// Server is the responding peer.
// It handles one connection at a time.
type Server struct {
	open Opener
	opts Options

	store     bsync.Store
	blockSize int
	stopWatch context.CancelFunc
	watchDone chan struct{}

	snd *sender
	rcv *receiver
}

// NewServer produces a Server that opens its local file with `open`
// once the first handshake arrives.
func NewServer(open Opener, opts Options) *Server {
	return &Server{open: open, opts: opts.withDefaults()}
}

// Serve accepts connections on lis until ctx is canceled,
// at which point it closes lis and returns nil.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	defer s.teardown()
	defer s.opts.Status(false)

	// The listener is closed when ctx is canceled or Serve returns,
	// whichever comes first.
	closed := make(chan struct{})
	defer func() { <-closed }()

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-lctx.Done()
		lis.Close()
		close(closed)
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accepting connection")
		}

		passDone := s.handle(ctx, session.New(conn, s.opts.Timeout))
		if passDone {
			if err = sleep(ctx, s.opts.PassInterval); err != nil {
				return nil
			}
		}
	}
}

// handle runs one exchange on sess and closes it.
// It reports whether the exchange completed a pass over the local file.
func (s *Server) handle(ctx context.Context, sess *session.Session) bool {
	defer sess.Close()

	if s.snd != nil {
		return s.send(ctx, sess)
	}

	line, err := sess.ReadLine()
	if err != nil {
		s.opts.Logger.Printf("ERROR reading from %s: %s", remote(sess), err)
		return false
	}

	if session.IsHandshake(line) {
		if err = s.setup(ctx, line); err != nil {
			s.opts.Logger.Printf("ERROR in handshake from %s: %s", remote(sess), err)
			return false
		}
		if err = sess.WriteLine(session.HandshakeReply); err != nil {
			s.opts.Logger.Printf("ERROR confirming handshake to %s: %s", remote(sess), err)
		}
		return false
	}

	if s.rcv == nil {
		s.opts.Logger.Printf("ERROR instruction from %s before handshake, dropping it", remote(sess))
		return false
	}
	reply, err := s.rcv.handle(ctx, line)
	if err != nil {
		s.opts.Logger.Printf("ERROR handling instruction from %s: %s", remote(sess), err)
		return false
	}
	if err = sess.WriteLine(reply); err != nil {
		s.opts.Logger.Printf("ERROR replying to %s: %s", remote(sess), err)
	}
	return false
}

// send runs one exchange as the sender.
// A handshake in place of a reply means the Client restarted;
// the Server sets up again from it.
func (s *Server) send(ctx context.Context, sess *session.Session) bool {
	inst, err := s.snd.send(sess)
	if err != nil {
		s.opts.Logger.Printf("ERROR sending to %s: %s", remote(sess), err)
		return false
	}
	reply, err := sess.ReadLine()
	if err != nil {
		s.opts.Logger.Printf("ERROR awaiting reply to %s from %s: %s", inst, remote(sess), err)
		return false
	}
	if session.IsHandshake(reply) {
		if err = s.setup(ctx, reply); err != nil {
			s.opts.Logger.Printf("ERROR in handshake from %s: %s", remote(sess), err)
		}
		return false
	}
	st, err := s.snd.settle(ctx, inst, reply)
	if err != nil {
		s.opts.Logger.Printf("ERROR from %s: %s", remote(sess), err)
		return false
	}
	return st.PassComplete
}

// setup (re)initializes the Server from a handshake line.
// The local file is reopened only if the block size changed.
// The Server's role is always fresh afterwards.
func (s *Server) setup(ctx context.Context, line string) error {
	hs, err := session.ParseHandshake(line)
	if err != nil {
		return err
	}
	if hs.BlockSize <= bsync.MinBlockSize {
		return errors.Errorf("block size %d must be greater than %d", hs.BlockSize, bsync.MinBlockSize)
	}

	if s.store == nil || s.blockSize != hs.BlockSize {
		s.teardown()

		store, err := s.open(hs.BlockSize)
		if err != nil {
			return errors.Wrapf(err, "opening local file with block size %d", hs.BlockSize)
		}
		s.store = store
		s.blockSize = hs.BlockSize

		wctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		w := &watcher.Watcher{
			Store:    store,
			Interval: s.opts.PollInterval,
			Logger:   s.opts.Logger,
		}
		go func() {
			defer close(done)
			w.Run(wctx)
		}()
		s.stopWatch = cancel
		s.watchDone = done
	}

	s.snd, s.rcv = nil, nil
	role := hs.Direction.Invert()
	if role.Sends() {
		if s.snd, err = newSender(s.store, s.opts); err != nil {
			return err
		}
	} else {
		s.rcv = newReceiver(s.store, s.opts)
	}

	s.opts.Status(true)
	s.opts.record(ctx, s.role(), journal.KindHandshake, 0, 0)
	s.opts.Logger.Printf("handshake: %s; responding with %s", hs, role)
	return nil
}

func (s *Server) role() string {
	if s.snd != nil {
		return journal.Sender
	}
	return journal.Receiver
}

func (s *Server) teardown() {
	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
		s.stopWatch, s.watchDone = nil, nil
	}
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.opts.Logger.Printf("ERROR closing local file: %s", err)
		}
	}
	s.store = nil
	s.snd, s.rcv = nil, nil
}
