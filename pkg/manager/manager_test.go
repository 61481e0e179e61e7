package manager_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/dstore/pkg/backend/memory"
	"github.com/cuemby/dstore/pkg/manager"
	"github.com/cuemby/dstore/pkg/object"
	"github.com/cuemby/dstore/pkg/txn"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.Start()
	t.Cleanup(store.Stop)
	return store
}

func newTestManager(t *testing.T, store *memory.Store, opts ...manager.Option) *manager.Manager {
	t.Helper()
	mgr, err := manager.New(memory.NewBackend(store), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestBasicRoundTrip(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store)
	b := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{1, 2, 3}))
	require.NoError(t, err)

	root, err := b.Refresh(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, []any{1, 2, 3}, root.(*object.DList).Slice())
}

func TestConcurrentSafeMutation(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store)
	b := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{1, 2, 3}))
	require.NoError(t, err)

	rootA, err := a.Read(ctx, nil)
	require.NoError(t, err)
	listA := rootA.(*object.DList)

	tr := a.Transaction(ctx)
	snapshotInsideTxn := listA.Slice()

	rootB, err := b.Read(ctx, nil)
	require.NoError(t, err)
	listB := rootB.(*object.DList)
	n, err := listB.Get(0)
	require.NoError(t, err)
	require.NoError(t, listB.SetItem(0, n.(int)-1))

	require.Equal(t, []any{1, 2, 3}, snapshotInsideTxn)
	require.NoError(t, tr.End(ctx, nil))

	afterA, err := a.Refresh(ctx, nil)
	require.NoError(t, err)
	require.NotEqual(t, []any{1, 2, 3}, afterA.(*object.DList).Slice())
}

func TestTimeoutOnSlowConflictingTransaction(t *testing.T) {
	store := newTestStore(t)
	timeout := 100 * time.Millisecond
	a := newTestManager(t, store, manager.WithTimeout(timeout))
	b := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{1, 2, 3}))
	require.NoError(t, err)

	root, err := a.Read(ctx, nil)
	require.NoError(t, err)
	list := root.(*object.DList)

	err = a.Transactional(ctx, func(tr *txn.Transaction) error {
		time.Sleep(150 * time.Millisecond)

		otherRoot, rerr := b.Read(ctx, nil)
		require.NoError(t, rerr)
		otherRoot.(*object.DList).Append("conflict")

		list.Append("mine")
		return nil
	})
	require.True(t, errors.Is(err, txn.ErrTimeout))
}

func TestRetriesExhausted(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store, manager.WithRetries(0))
	b := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{1, 2, 3}))
	require.NoError(t, err)

	root, err := a.Read(ctx, nil)
	require.NoError(t, err)
	list := root.(*object.DList)

	err = a.Transactional(ctx, func(tr *txn.Transaction) error {
		otherRoot, rerr := b.Read(ctx, nil)
		require.NoError(t, rerr)
		otherRoot.(*object.DList).Append("conflict")

		list.Append("mine")
		return nil
	})
	require.True(t, errors.Is(err, txn.ErrRetriesExceeded))
}

func TestRollbackOnCallerError(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{1, 2, 3}))
	require.NoError(t, err)

	root, err := a.Read(ctx, nil)
	require.NoError(t, err)
	list := root.(*object.DList)

	boom := errors.New("unrelated failure")
	tr := a.Transaction(ctx)
	n, err := list.Get(0)
	require.NoError(t, err)
	require.NoError(t, list.SetItem(0, n.(int)-1))
	err = tr.End(ctx, boom)
	require.NoError(t, err)

	require.Equal(t, []any{1, 2, 3}, list.Slice())
}

func TestDetachedSubObject(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store)
	b := newTestManager(t, store)
	ctx := context.Background()

	inner := object.NewDList([]any{2, 3})
	_, err := a.Write(ctx, object.NewDList([]any{1, inner, 4}))
	require.NoError(t, err)

	root, err := a.Read(ctx, nil)
	require.NoError(t, err)
	list := root.(*object.DList)
	sub, err := list.Get(1)
	require.NoError(t, err)
	subProxy, ok := sub.(object.Proxy)
	require.True(t, ok, "nested list element must be a linked proxy")

	otherRoot, err := b.Read(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, otherRoot.(*object.DList).SetItem(1, nil))

	_, err = a.Refresh(ctx, nil)
	require.NoError(t, err)
	require.False(t, a.IsLinked(subProxy))
}

func TestTransactionalCommitsWithoutConflict(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{}))
	require.NoError(t, err)

	root, err := a.Read(ctx, nil)
	require.NoError(t, err)
	list := root.(*object.DList)

	err = a.Transactional(ctx, func(tr *txn.Transaction) error {
		list.Append("x")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []any{"x"}, list.Slice())
}

func TestSnapshotIsDetachedFromFutureWrites(t *testing.T) {
	store := newTestStore(t)
	a := newTestManager(t, store)
	ctx := context.Background()

	_, err := a.Write(ctx, object.NewDList([]any{1, 2, 3}))
	require.NoError(t, err)

	snap, err := a.Snapshot(ctx, nil)
	require.NoError(t, err)
	snapList := snap.(*object.DList)

	root, err := a.Read(ctx, nil)
	require.NoError(t, err)
	root.(*object.DList).Append(4)

	require.Equal(t, []any{1, 2, 3}, snapList.Slice())
}
