// Package journal records what happens during synchronization,
// for later inspection with the "bsync stats" command.
//
// Implementations live in subpackages and register themselves by driver name;
// import them for their side effects:
//
//	import _ "github.com/bobg/bsync/journal/sqlite3"
package journal

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Roles.
const (
	Sender   = "sender"
	Receiver = "receiver"
)

// Event kinds.
const (
	KindReference   = "reference"   // a Reference was acknowledged
	KindLiteral     = "literal"     // a Literal was acknowledged
	KindUpgrade     = "upgrade"     // a rejected Reference was upgraded to a Literal
	KindDropped     = "dropped"     // an upgraded Literal was rejected and abandoned
	KindApplied     = "applied"     // an instruction was applied
	KindUnavailable = "unavailable" // a Reference was rejected
	KindFailed      = "failed"      // an instruction could not be applied
	KindHandshake   = "handshake"   // a peer completed a handshake
)

// Event is one journal entry.
type Event struct {
	At    time.Time
	Role  string
	Kind  string
	Index int
	Bytes int
}

// Journal is a destination for events.
type Journal interface {
	Record(context.Context, Event) error
	Close() error
}

// Count summarizes the events of one role and kind.
type Count struct {
	Role  string
	Kind  string
	N     int64
	Bytes int64
}

// Summarizer is a Journal that can summarize its contents.
type Summarizer interface {
	Journal
	Summary(context.Context) ([]Count, error)
}

// Lister is a Journal that can replay its events.
type Lister interface {
	Journal
	Events(ctx context.Context, since time.Time, f func(Event) error) error
}

// Nop is a Journal that discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }

// Factory opens a Journal given a driver-specific data source name.
type Factory func(ctx context.Context, dsn string) (Journal, error)

var registry = make(map[string]Factory)

// Register makes a Journal implementation available by name.
func Register(driver string, f Factory) {
	registry[driver] = f
}

// Drivers lists the registered driver names in order.
func Drivers() []string {
	var result []string
	for k := range registry {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Open opens a Journal with a registered driver.
// An empty driver name produces a Nop journal.
func Open(ctx context.Context, driver, dsn string) (Journal, error) {
	if driver == "" {
		return Nop{}, nil
	}
	f, ok := registry[driver]
	if !ok {
		return nil, fmt.Errorf("journal driver %s not found in registry", driver)
	}
	return f(ctx, dsn)
}
