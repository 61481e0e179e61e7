package events

import (
	"testing"
	"time"

	"github.com/cuemby/dstore/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestBrokerPublishDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	id := types.NewParticipantID()
	b.Publish(Notification{Version: 3, Notifier: id})

	select {
	case n := <-sub:
		assert.Equal(t, types.Version(3), n.Version)
		assert.Equal(t, id, n.Notifier)
		assert.False(t, n.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "unsubscribed channel must be closed")
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	subA := b.Subscribe()
	subB := b.Subscribe()
	defer b.Unsubscribe(subA)
	defer b.Unsubscribe(subB)

	b.Publish(Notification{Version: 1})

	for _, sub := range []Subscriber{subA, subB} {
		select {
		case n := <-sub:
			assert.Equal(t, types.Version(1), n.Version)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}
