// Package watcher polls a file for changes made outside the synchronization protocol.
package watcher

import (
	"context"
	"log"
	"time"

	"github.com/bobg/bsync"
)

// DefaultInterval is the default time between polls.
const DefaultInterval = 5 * time.Second

// Watcher periodically calls Recompute on a store,
// which is the only way local edits to the file become visible to the engine.
type Watcher struct {
	Store    bsync.Store
	Interval time.Duration
	Logger   *log.Logger

	// OnChange, if set, is called after each Recompute that found a change.
	OnChange func()
}

// Run polls until ctx is canceled,
// then returns ctx.Err().
// Recompute errors are logged and polling continues.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := w.Logger
	if logger == nil {
		logger = log.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			changed, err := w.Store.Recompute()
			if err != nil {
				logger.Printf("ERROR recomputing signatures: %s", err)
				continue
			}
			if changed {
				logger.Printf("file changed: now %d bytes in %d blocks", w.Store.Size(), w.Store.Len())
				if w.OnChange != nil {
					w.OnChange()
				}
			}
		}
	}
}
