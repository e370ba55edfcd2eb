// Package messaging defines the transport contracts between services.
// The broker guarantees at-least-once, possibly out-of-order delivery;
// consumers own deduplication and idempotent application.
package messaging

import (
	"context"
	"sync"

	"github.com/example/game-economy/internal/event"
)

// Publisher hands a wrapped domain event to the broker. Implementations
// must not buffer: a nil return means the broker accepted the message.
type Publisher interface {
	Publish(ctx context.Context, key string, env event.Envelope) error
}

// Deduper tracks which envelope ids a consumer has already processed.
// Consumers check Seen before handling a delivery and call MarkSeen only
// after the handling succeeded, so a failed apply stays eligible for the
// broker's redelivery. Two instances racing past Seen both apply; that is
// safe because replica application is idempotent.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string) error
}

// MemoryDeduper is a process-local Deduper for tests and single-instance
// deployments.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) Seen(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.seen[id]
	return ok, nil
}

func (d *MemoryDeduper) MarkSeen(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[id] = struct{}{}
	return nil
}
