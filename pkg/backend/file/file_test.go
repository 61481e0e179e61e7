package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/dstore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBackend(t *testing.T) *Backend {
	path := filepath.Join(t.TempDir(), "store.db")
	b, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestFileBackendReadEmpty(t *testing.T) {
	b := openTestBackend(t)

	version, blob, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Version(0), version)
	assert.Nil(t, blob)
}

func TestFileBackendWriteThenRead(t *testing.T) {
	b := openTestBackend(t)

	v, err := b.Write(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, types.Version(1), v)

	version, blob, err := b.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Version(1), version)
	assert.Equal(t, []byte("hello"), blob)
}

func TestFileBackendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	b1, err := Open(path)
	require.NoError(t, err)
	_, err = b1.Write(context.Background(), []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, b1.Close())

	b2, err := Open(path)
	require.NoError(t, err)
	defer b2.Close()

	version, blob, err := b2.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Version(1), version)
	assert.Equal(t, []byte("persisted"), blob)
}

func TestFileBackendTryWriteConflict(t *testing.T) {
	b := openTestBackend(t)

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

func TestFileBackendTargetWaitObservesForeignWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	writer, err := Open(path)
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, writer.SetID(types.NewParticipantID()))

	reader, err := Open(path)
	require.NoError(t, err)
	defer reader.Close()
	require.NoError(t, reader.SetID(types.NewParticipantID()))

	_, err = writer.Write(context.Background(), []byte("first"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), pollInterval+time.Second)
	defer cancel()
	changed, err := reader.TargetWait(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestFileBackendTargetWaitIgnoresOwnWrite(t *testing.T) {
	b := openTestBackend(t)
	require.NoError(t, b.SetID(types.NewParticipantID()))

	_, err := b.Write(context.Background(), []byte("self"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), pollInterval+time.Second)
	defer cancel()
	changed, err := b.TargetWait(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "a backend must not report its own write as foreign")
}

func TestFileBackendSetIDRejectsSecondCall(t *testing.T) {
	b := openTestBackend(t)
	require.NoError(t, b.SetID(types.NewParticipantID()))
	err := b.SetID(types.NewParticipantID())
	assert.Error(t, err)
}

func TestFileBackendTargetWaitCanceledByContext(t *testing.T) {
	b := openTestBackend(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.TargetWait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
