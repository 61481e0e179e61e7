package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/dstore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	s := NewStore()
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestMemoryBackendReadEmpty(t *testing.T) {
	s := newTestStore(t)
	b := NewBackend(s)

	version, blob, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Version(0), version)
	assert.Nil(t, blob)
}

func TestMemoryBackendWriteThenRead(t *testing.T) {
	s := newTestStore(t)
	b := NewBackend(s)

	v, err := b.Write(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, types.Version(1), v)

	version, blob, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Version(1), version)
	assert.Equal(t, []byte("hello"), blob)
}

func TestMemoryBackendTryWriteConflict(t *testing.T) {
	s := newTestStore(t)
	b := NewBackend(s)

	_, err := b.Write(context.Background(), []byte("a"))
	require.NoError(t, err)

	ok, v, err := b.TryWrite(context.Background(), []byte("b"), 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, types.Version(1), v)

	ok, v, err = b.TryWrite(context.Background(), []byte("b"), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.Version(2), v)
}

func TestMemoryBackendTargetWaitObservesForeignWrite(t *testing.T) {
	s := newTestStore(t)
	writer := NewBackend(s)
	require.NoError(t, writer.SetID(types.NewParticipantID()))
	reader := NewBackend(s)
	require.NoError(t, reader.SetID(types.NewParticipantID()))

	done := make(chan bool, 1)
	go func() {
		changed, err := reader.TargetWait(context.Background())
		assert.NoError(t, err)
		done <- changed
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := writer.Write(context.Background(), []byte("update"))
	require.NoError(t, err)

	select {
	case changed := <-done:
		assert.True(t, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TargetWait to observe the write")
	}
}

func TestMemoryBackendTargetWaitIgnoresOwnWrite(t *testing.T) {
	s := newTestStore(t)
	b := NewBackend(s)
	require.NoError(t, b.SetID(types.NewParticipantID()))

	done := make(chan bool, 1)
	go func() {
		changed, err := b.TargetWait(context.Background())
		assert.NoError(t, err)
		done <- changed
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := b.Write(context.Background(), []byte("self"))
	require.NoError(t, err)

	select {
	case changed := <-done:
		assert.False(t, changed, "a backend must not report its own write as foreign")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TargetWait")
	}
}

func TestMemoryBackendSetIDRejectsSecondCall(t *testing.T) {
	b := NewBackend(newTestStore(t))
	require.NoError(t, b.SetID(types.NewParticipantID()))
	err := b.SetID(types.NewParticipantID())
	assert.Error(t, err)
}
