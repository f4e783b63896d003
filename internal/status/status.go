package status

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

// Status is the presentation signal for an address
type Status string

const (
	Unknown  Status = "Unknown"
	Scanning Status = "Scanning"
	Safe     Status = "Safe"
	Danger   Status = "Danger"
)

// Resolve projects a cache lookup and a pipeline state onto a Status.
// An in-progress scan wins over any cached verdict.
func Resolve(verdict *core.Verdict, found bool, state core.ScanState) Status {
	if state == core.StateScanning {
		return Scanning
	}
	if found && verdict != nil {
		if verdict.IsThreat {
			return Danger
		}
		return Safe
	}
	switch state {
	case core.StateThreat:
		return Danger
	case core.StateSafe:
		return Safe
	default:
		return Unknown
	}
}

// Update is a status change delivered to subscribers
type Update struct {
	Address string        `json:"address"`
	Status  Status        `json:"status"`
	Verdict *core.Verdict `json:"verdict,omitempty"`
}

// Source is the read side of the scan service the indicator needs
type Source interface {
	State(address string) core.ScanState
	Lookup(ctx context.Context, address string) (*core.Verdict, bool, error)
}

// Current resolves the status of an address from the scan service
func Current(ctx context.Context, src Source, address string) (Status, *core.Verdict, error) {
	state := src.State(address)
	if state == core.StateScanning {
		return Scanning, nil, nil
	}
	verdict, found, err := src.Lookup(ctx, address)
	if err != nil {
		return Unknown, nil, err
	}
	return Resolve(verdict, found, state), verdict, nil
}

// Feed turns scan events into status updates for its subscribers. It keeps
// no record of past updates.
type Feed struct {
	logger *zap.Logger

	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(Update)
}

// NewFeed creates a new status feed
func NewFeed(logger *zap.Logger) *Feed {
	return &Feed{logger: logger, subscribers: make(map[int]func(Update))}
}

// Subscribe registers a callback for status updates and returns a function
// that removes it. Callbacks run on the scanning goroutine and must not block.
func (f *Feed) Subscribe(fn func(Update)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers, id)
	}
}

// Publish implements core.EventSink
func (f *Feed) Publish(_ context.Context, event core.ScanEvent) {
	update := Update{
		Address: event.Address,
		Status:  Resolve(event.Verdict, event.Verdict != nil, event.State),
		Verdict: event.Verdict,
	}

	f.logger.Debug("Status changed",
		zap.String("address", update.Address),
		zap.String("status", string(update.Status)))

	f.mu.RLock()
	subscribers := make([]func(Update), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subscribers = append(subscribers, fn)
	}
	f.mu.RUnlock()

	for _, fn := range subscribers {
		fn(update)
	}
}
