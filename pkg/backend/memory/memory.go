// Package memory implements an in-process backend.Backend: every
// handle sharing the same *Store sees the other's writes immediately,
// making it suitable for single-process demos and tests of the
// Manager/Transaction layers without standing up a real store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/dstore/pkg/backend"
	"github.com/cuemby/dstore/pkg/events"
	"github.com/cuemby/dstore/pkg/types"
)

// pollInterval bounds how long TargetWait blocks before giving up and
// returning a (false, nil) "nothing observed" result, matching the
// original in-process backend's own 0.5s condition-variable wait.
const pollInterval = 500 * time.Millisecond

// Store is the shared state behind every Backend handle created from
// the same Store via NewBackend. Holding it separately from Backend
// lets a backend handle be copied cheaply while still observing the
// same writes.
type Store struct {
	mu      sync.Mutex
	version types.Version
	blob    []byte
	broker  *events.Broker
}

// NewStore creates an empty, shared store. Call Start once before any
// handle calls TargetWait.
func NewStore() *Store {
	return &Store{broker: events.NewBroker()}
}

// Start begins the store's notification broker. Safe to call once.
func (s *Store) Start() { s.broker.Start() }

// Stop halts the store's notification broker.
func (s *Store) Stop() { s.broker.Stop() }

// Backend is one handle onto a shared Store.
type Backend struct {
	store *Store
	id    types.ParticipantID
	sub   events.Subscriber
}

// NewBackend creates a handle onto store. Multiple handles created from
// the same Store observe each other's writes.
func NewBackend(store *Store) *Backend {
	return &Backend{store: store, sub: store.broker.Subscribe()}
}

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) SetID(id types.ParticipantID) error {
	if !b.id.IsZero() && !id.IsZero() {
		return backend.ErrIDAlreadySet
	}
	b.id = id
	return nil
}

func (b *Backend) Read(ctx context.Context) (types.Version, []byte, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if b.store.blob == nil {
		return 0, nil, nil
	}
	return b.store.version, append([]byte(nil), b.store.blob...), nil
}

func (b *Backend) Write(ctx context.Context, blob []byte) (types.Version, error) {
	b.store.mu.Lock()
	v := b.store.notify(blob)
	b.store.mu.Unlock()
	b.store.broker.Publish(events.Notification{Version: v, Notifier: b.id})
	return v, nil
}

func (b *Backend) TryWrite(ctx context.Context, blob []byte, expected types.Version) (bool, types.Version, error) {
	b.store.mu.Lock()
	if b.store.version != expected {
		current := b.store.version
		b.store.mu.Unlock()
		return false, current, nil
	}
	v := b.store.notify(blob)
	b.store.mu.Unlock()
	b.store.broker.Publish(events.Notification{Version: v, Notifier: b.id})
	return true, v, nil
}

// notify must be called with store.mu held.
func (s *Store) notify(blob []byte) types.Version {
	s.blob = append([]byte(nil), blob...)
	s.version++
	return s.version
}

func (b *Backend) TargetWait(ctx context.Context) (bool, error) {
	b.store.mu.Lock()
	observed := b.store.version
	b.store.mu.Unlock()

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()

	select {
	case n, ok := <-b.sub:
		if !ok {
			return false, nil
		}
		return n.Version != observed && n.Notifier != b.id, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
