package events

import (
	"sync"
	"time"

	"github.com/cuemby/dstore/pkg/types"
)

// Notification is published whenever a backend's stored blob changes.
// It carries just enough for a subscriber to decide whether the change
// is its own (Notifier equals its own participant id) or a foreign one
// it should rebase against.
type Notification struct {
	Version   types.Version
	Notifier  types.ParticipantID
	Timestamp time.Time
}

// Subscriber is a channel that receives notifications.
type Subscriber chan Notification

// Broker fans out write notifications to every subscriber without
// blocking the publisher. It backs pkg/backend/memory's TargetWait: a
// write calls Publish, and every in-process backend handle sharing the
// same underlying store is woken up to decide for itself whether the
// change was foreign.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan Notification
	stopCh      chan struct{}
}

// NewBroker creates a broker. Call Start before publishing.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan Notification, 64),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts distribution. Subscriber channels are left open; callers
// must Unsubscribe explicitly.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 8)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes sub.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish broadcasts n to every current subscriber. It does not block on
// a full subscriber buffer: a subscriber that falls behind simply misses
// intermediate notifications, which TargetWait's polling fallback covers
// for — a missed wakeup is advisory, never fatal.
func (b *Broker) Publish(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- n:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case n := <-b.eventCh:
			b.broadcast(n)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- n:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
