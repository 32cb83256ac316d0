// Package policycache keeps a process-local copy of externally-changed
// authorization policies and marks the scope guard's read model stale
// when they change, so the next check re-validates instead of trusting
// stale state.
package policycache

import (
	"context"
	"sync"

	"conduit/internal/domain"
)

// Unsubscribe tears down one subscription. Owners must retain and call it;
// fire-and-forget subscriptions outliving their scope are a leak.
type Unsubscribe func() error

// Notifier is the external policy-change notification channel.
type Notifier interface {
	Subscribe(ctx context.Context, handler func(domain.PolicyChange)) (Unsubscribe, error)
}

// MemoryNotifier is an in-process notifier for tests and single-binary
// deployments. Delivery is synchronous in Publish's caller.
type MemoryNotifier struct {
	mu          sync.RWMutex
	subscribers map[int]func(domain.PolicyChange)
	nextID      int
}

// NewMemoryNotifier creates a notifier with no subscribers.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subscribers: make(map[int]func(domain.PolicyChange))}
}

// Subscribe registers a handler until the returned Unsubscribe runs.
func (n *MemoryNotifier) Subscribe(_ context.Context, handler func(domain.PolicyChange)) (Unsubscribe, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subscribers[id] = handler

	return func() error {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subscribers, id)
		return nil
	}, nil
}

// Publish fans the change out to every current subscriber.
func (n *MemoryNotifier) Publish(change domain.PolicyChange) {
	n.mu.RLock()
	handlers := make([]func(domain.PolicyChange), 0, len(n.subscribers))
	for _, h := range n.subscribers {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
}
