// Package txn implements the transaction engine: snapshot-isolated,
// optimistic commits on top of a Host (satisfied by *manager.Manager)
// that owns the canonical object map and the backend write path.
//
// A Transaction traces every distributed object a caller mutates via
// Trace, and either publishes all of those shadow copies to the
// canonical object map and attempts a single compare-and-swap write
// (Commit), or discards them and restores each object's pre-image
// (Rollback). Nesting is supported through Begin/End's depth counter:
// only the outermost Begin/End pair actually commits or rolls back,
// mirroring a reentrant transaction context manager.
package txn

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/dstore/pkg/metrics"
	"github.com/cuemby/dstore/pkg/object"
	"github.com/cuemby/dstore/pkg/types"
)

// Host is the surface a Transaction needs from its owning Manager: enough
// to read the current version, resolve a traced object's canonical proxy,
// attempt the backend compare-and-swap, and release itself once the
// outermost Begin/End pair completes.
type Host interface {
	CurrentVersion() types.Version
	Canonical(xid types.XID) (object.Proxy, bool)
	TryCommit(ctx context.Context, expected types.Version) (bool, error)
	CurrentTransaction() *Transaction
	UnlinkTransaction()
}

type tracedEntry struct {
	proxy object.Proxy
	prev  any
}

// Transaction accumulates the distributed objects touched by one logical
// unit of work. A single instance is reused across nested Begin/End pairs
// within the same logical transaction, exactly like the Host's other
// callers expect to see the "current" transaction regardless of nesting
// depth.
type Transaction struct {
	mu      sync.Mutex
	host    Host
	objs    map[types.XID]tracedEntry
	depth   int
	version types.Version
	started time.Time
}

// New creates a fresh, unopened Transaction bound to host.
func New(host Host) *Transaction {
	return &Transaction{host: host, objs: make(map[types.XID]tracedEntry)}
}

// Trace records obj's pre-mutation subobj so Rollback can restore it and
// Commit can publish obj's final value to the canonical object map. It is
// called by pkg/object's mutate shim the first time a proxy is dirtied
// within this transaction.
func (tr *Transaction) Trace(obj object.Proxy, prevSubobj any) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.objs[obj.XID()] = tracedEntry{proxy: obj, prev: prevSubobj}
	return nil
}

// IsTraced reports whether xid already has a recorded pre-image in this
// transaction.
func (tr *Transaction) IsTraced(xid types.XID) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	_, ok := tr.objs[xid]
	return ok
}

// Rollback restores every traced object's pre-image, both on the proxy
// itself and on its canonical counterpart in the object map.
func (tr *Transaction) Rollback() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for xid, entry := range tr.objs {
		if canon, ok := tr.host.Canonical(xid); ok {
			canon.SetSubobj(entry.prev)
		}
		entry.proxy.SetSubobj(entry.prev)
	}
}

// Commit publishes every traced object's current value into the
// canonical object map, then attempts a single compare-and-swap write
// against the version this transaction observed when it began. Any error
// from the attempt is treated as a failed commit, not propagated: the
// caller only learns whether the commit succeeded. A failed commit rolls
// back before returning.
func (tr *Transaction) Commit(ctx context.Context) bool {
	tr.mu.Lock()
	if len(tr.objs) == 0 {
		tr.mu.Unlock()
		return true
	}
	for xid, entry := range tr.objs {
		if canon, ok := tr.host.Canonical(xid); ok {
			canon.SetSubobj(entry.proxy.Subobj())
		}
	}
	version := tr.version
	tr.mu.Unlock()

	ok, err := tr.host.TryCommit(ctx, version)
	if err != nil {
		ok = false
	}
	if !ok {
		tr.Rollback()
	}
	return ok
}

// Begin enters the transaction, snapshotting the host's current version
// the first time (depth 0 -> 1). Nested Begin calls just bump the depth
// counter and return the same instance.
func (tr *Transaction) Begin() *Transaction {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.depth == 0 {
		tr.version = tr.host.CurrentVersion()
		tr.started = time.Now()
	}
	tr.depth++
	return tr
}

// unlink clears traced state and tells the host this transaction is no
// longer in flight.
func (tr *Transaction) unlink() {
	tr.mu.Lock()
	tr.objs = make(map[types.XID]tracedEntry)
	tr.mu.Unlock()
	tr.host.UnlinkTransaction()
}

// End leaves the transaction. At depth 0 it commits and unlinks on a nil
// err, or unconditionally rolls back and unlinks on a non-nil err. It
// returns ErrConflict if the outermost commit failed due to a version
// mismatch, so Run can decide whether to retry.
func (tr *Transaction) End(ctx context.Context, err error) error {
	tr.mu.Lock()
	tr.depth--
	depth := tr.depth
	started := tr.started
	tr.mu.Unlock()

	if depth > 0 {
		return nil
	}
	defer func() {
		if !started.IsZero() {
			metrics.TransactionDuration.Observe(time.Since(started).Seconds())
		}
	}()

	if err != nil {
		tr.Rollback()
		tr.unlink()
		metrics.TransactionsTotal.WithLabelValues("rolled_back").Inc()
		return nil
	}

	ok := tr.Commit(ctx)
	tr.unlink()
	if !ok {
		metrics.TransactionsTotal.WithLabelValues("conflict").Inc()
		metrics.TransactionConflictsTotal.Inc()
		return ErrConflict
	}
	metrics.TransactionsTotal.WithLabelValues("committed").Inc()
	return nil
}
