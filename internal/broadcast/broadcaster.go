// Package broadcast fans sync-info change notifications out to registered
// listeners at batch completion.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// Listener receives the set of resources whose sync info changed. Calls are
// synchronous on the batch-closing goroutine; no ordering between a folder
// and its descendants is promised.
type Listener func(resources []workspace.Resource)

// Registration identifies a subscribed listener for later removal.
type Registration struct {
	id uuid.UUID
}

// Broadcaster maintains the listener registry.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]Listener
	logger    *slog.Logger
}

// New creates a broadcaster. logger nil means slog.Default().
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		listeners: make(map[uuid.UUID]Listener),
		logger:    logger,
	}
}

// Subscribe registers a listener and returns its registration handle.
func (b *Broadcaster) Subscribe(l Listener) Registration {
	id := uuid.New()
	b.mu.Lock()
	b.listeners[id] = l
	b.mu.Unlock()
	return Registration{id: id}
}

// Unsubscribe removes a previously registered listener.
func (b *Broadcaster) Unsubscribe(r Registration) {
	b.mu.Lock()
	delete(b.listeners, r.id)
	b.mu.Unlock()
}

// Count returns the number of registered listeners.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Broadcast delivers the change set to every listener. A panicking listener
// is logged and does not stop delivery to the others.
func (b *Broadcaster) Broadcast(resources []workspace.Resource) {
	if len(resources) == 0 {
		return
	}
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		b.deliver(l, resources)
	}
}

func (b *Broadcaster) deliver(l Listener, resources []workspace.Resource) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("sync-info listener panicked", "panic", r)
		}
	}()
	l(resources)
}
