package peer

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/codec"
	"github.com/bobg/bsync/journal"
	"github.com/bobg/bsync/session"
	"github.com/bobg/bsync/watcher"
)

// Client is the initiating peer.
type Client struct {
	store bsync.Store
	addr  string
	dir   bsync.Direction
	opts  Options
}

// NewClient produces a Client synchronizing `store` with the Server at `addr`.
// Direction dir is from the Client's point of view:
// Push sends store's content to the Server,
// Pull replaces store's content with the Server's.
func NewClient(store bsync.Store, addr string, dir bsync.Direction, opts Options) *Client {
	return &Client{
		store: store,
		addr:  addr,
		dir:   dir,
		opts:  opts.withDefaults(),
	}
}

// Run synchronizes until ctx is canceled,
// at which point it returns nil.
// Connection failures are logged and retried with backoff;
// Run returns early only on an error that retrying cannot fix.
func (c *Client) Run(ctx context.Context) error {
	outer := ctx
	g, ctx := errgroup.WithContext(ctx)

	w := &watcher.Watcher{
		Store:    c.store,
		Interval: c.opts.PollInterval,
		Logger:   c.opts.Logger,
	}
	g.Go(func() error { return w.Run(ctx) })
	g.Go(func() error { return c.loop(ctx) })

	err := g.Wait()
	if outer.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) loop(ctx context.Context) error {
	var (
		b          = newBackoff(ctx, c.opts.RetryInterval, c.opts.MaxRetryInterval)
		handshaken bool
		snd        *sender
		rcv        *receiver
	)

	defer c.opts.Status(false)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !handshaken {
			if err := c.handshake(ctx); err != nil {
				c.opts.Logger.Printf("ERROR in handshake with %s: %s", c.addr, err)
				if err = wait(ctx, b); err != nil {
					return err
				}
				continue
			}
			handshaken = true
			b.Reset()
			c.opts.Status(true)

			// The Server starts every session fresh, and so does the Client:
			// history from an earlier session may describe a file the Server no longer has.
			if c.dir.Sends() {
				var err error
				if snd, err = newSender(c.store, c.opts); err != nil {
					return err
				}
			} else {
				rcv = newReceiver(c.store, c.opts)
			}
		}

		var (
			passDone bool
			err      error
		)
		if snd != nil {
			passDone, err = c.push(ctx, snd)
		} else {
			err = c.pull(ctx, rcv)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.opts.Logger.Printf("ERROR exchanging with %s: %s", c.addr, err)
			if isConnError(err) {
				handshaken = false
				c.opts.Status(false)
			}
			if err = wait(ctx, b); err != nil {
				return err
			}
			continue
		}
		b.Reset()

		if passDone {
			if err = sleep(ctx, c.opts.PassInterval); err != nil {
				return err
			}
		}
	}
}

// handshake tells the Server the block size and direction.
// The Server confirms with a handshake reply,
// unless it was acting as a sender for a previous incarnation of this Client;
// then it sends an instruction before reading the handshake,
// and the instruction is discarded.
func (c *Client) handshake(ctx context.Context) error {
	sess, err := session.Dial(ctx, c.addr, c.opts.Timeout)
	if err != nil {
		return err
	}
	defer sess.Close()

	hs := session.Handshake{BlockSize: c.store.BlockSize(), Direction: c.dir}
	reply, err := sess.Exchange(hs.String())
	if err != nil {
		return errors.Wrap(err, "sending handshake")
	}
	if reply == session.HandshakeReply {
		c.opts.Logger.Printf("handshake with %s: %s", c.addr, hs)
		c.opts.record(ctx, c.role(), journal.KindHandshake, 0, 0)
		return nil
	}
	if _, err = codec.Decode(reply); err == nil {
		c.opts.Logger.Printf("handshake with %s: %s (server was sending; discarded its instruction)", c.addr, hs)
		c.opts.record(ctx, c.role(), journal.KindHandshake, 0, 0)
		return nil
	}
	return errors.Errorf("unexpected handshake reply %q", reply)
}

func (c *Client) role() string {
	if c.dir.Sends() {
		return journal.Sender
	}
	return journal.Receiver
}

// push performs one round trip as the sender.
func (c *Client) push(ctx context.Context, snd *sender) (bool, error) {
	sess, err := session.Dial(ctx, c.addr, c.opts.Timeout)
	if err != nil {
		return false, connError{err}
	}
	defer sess.Close()

	inst, err := snd.send(sess)
	if err != nil {
		return false, err
	}
	reply, err := sess.ReadLine()
	if err != nil {
		return false, connError{errors.Wrapf(err, "awaiting reply to %s", inst)}
	}
	st, err := snd.settle(ctx, inst, reply)
	if err != nil {
		return false, err
	}
	return st.PassComplete, nil
}

// pull performs one round trip as the receiver.
func (c *Client) pull(ctx context.Context, rcv *receiver) error {
	sess, err := session.Dial(ctx, c.addr, c.opts.Timeout)
	if err != nil {
		return connError{err}
	}
	defer sess.Close()

	line, err := sess.ReadLine()
	if err != nil {
		return connError{errors.Wrap(err, "awaiting instruction")}
	}
	reply, err := rcv.handle(ctx, line)
	if err != nil {
		return errors.Wrap(err, "dropping connection")
	}
	if err = sess.WriteLine(reply); err != nil {
		return connError{err}
	}
	return nil
}
