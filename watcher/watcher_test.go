package watcher

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/store/mem"
)

func TestRun(t *testing.T) {
	s, err := mem.New([]byte("before"), 64)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 10)
	w := &Watcher{
		Store:    s,
		Interval: 10 * time.Millisecond,
		Logger:   log.New(new(bytes.Buffer), "", 0),
		OnChange: func() { changes <- struct{}{} },
	}

	errch := make(chan error, 1)
	go func() { errch <- w.Run(ctx) }()

	s.Set([]byte("after, and longer"))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not notice the change")
	}
	if sig, _ := s.SignatureAt(0); sig != bsync.Sum([]byte("after, and longer")) {
		t.Error("signature not recomputed")
	}

	cancel()
	if err = <-errch; !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
}

type failingStore struct {
	bsync.Store

	mu    sync.Mutex
	calls int
}

func (f *failingStore) Recompute() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return false, errors.New("disk on fire")
}

func (f *failingStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunSurvivesErrors(t *testing.T) {
	var (
		fs  = &failingStore{}
		buf = new(syncBuffer)
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w := &Watcher{Store: fs, Interval: time.Millisecond, Logger: log.New(buf, "", 0)}
	go w.Run(ctx)

	for fs.count() < 3 {
		if ctx.Err() != nil {
			t.Fatal("watcher stopped polling after an error")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	if !strings.Contains(buf.String(), "ERROR recomputing signatures: disk on fire") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
