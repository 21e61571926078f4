package peer

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/bobg/bsync/engine"
	"github.com/bobg/bsync/journal"
	"github.com/bobg/bsync/watcher"
)

// Options control the behavior of a Client or Server.
// Zero values select defaults.
type Options struct {
	// Timeout bounds each connect, read, and write.
	Timeout time.Duration

	// RetryInterval is the first pause after a failed exchange.
	// Each further consecutive failure doubles it, up to MaxRetryInterval.
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration

	// PollInterval is how often the watcher checks the file for changes.
	PollInterval time.Duration

	// PassInterval is the pause after each complete pass over the file by a sender.
	PassInterval time.Duration

	// HistorySize is how many acknowledged block signatures a sender remembers.
	HistorySize int

	Logger  *log.Logger
	Journal journal.Journal

	// Status, if set, is called with true after a successful handshake
	// and with false when synchronization is interrupted.
	Status func(serving bool)

	// Trace, if set, is called by the sending peer with every instruction line it sends
	// and every reply line it receives, in order.
	Trace func(line string)
}

const (
	defaultTimeout          = 30 * time.Second
	defaultRetryInterval    = time.Second
	defaultMaxRetryInterval = time.Minute
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.MaxRetryInterval < o.RetryInterval {
		o.MaxRetryInterval = defaultMaxRetryInterval
		if o.MaxRetryInterval < o.RetryInterval {
			o.MaxRetryInterval = o.RetryInterval
		}
	}
	if o.PollInterval <= 0 {
		o.PollInterval = watcher.DefaultInterval
	}
	if o.PassInterval < 0 {
		o.PassInterval = 0
	}
	if o.HistorySize <= 0 {
		o.HistorySize = engine.DefaultHistorySize
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Journal == nil {
		o.Journal = journal.Nop{}
	}
	if o.Status == nil {
		o.Status = func(bool) {}
	}
	if o.Trace == nil {
		o.Trace = func(string) {}
	}
	return o
}

func (o Options) record(ctx context.Context, role, kind string, index, nbytes int) {
	ev := journal.Event{At: time.Now(), Role: role, Kind: kind, Index: index, Bytes: nbytes}
	if err := o.Journal.Record(ctx, ev); err != nil {
		o.Logger.Printf("ERROR recording %s event: %s", kind, err)
	}
}

// newBackoff paces retries after consecutive failures,
// starting at initial and doubling up to limit.
// It never gives up on its own; it stops only when ctx is canceled.
func newBackoff(ctx context.Context, initial, limit time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = limit
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// wait pauses for b's next interval.
// It returns early with ctx's error if ctx is canceled.
func wait(ctx context.Context, b backoff.BackOff) error {
	d := b.NextBackOff()
	if d == backoff.Stop {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.New("retries exhausted")
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
