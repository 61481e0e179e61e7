package object

import (
	"sync"

	"github.com/cuemby/dstore/pkg/types"
)

// base is embedded by every proxy type. It implements the rebase-on-read
// and shadow-copy-on-write shims that give distributed containers their
// snapshot-isolated, optimistic-MVCC behaviour, independent of whatever
// concrete Go value (slice, map, byte slice) the embedding type keeps in
// subobj.
//
// self must be set by the embedding type's constructor to the concrete
// proxy value (the *DList, *DSet, ...) so base can hand itself to the
// Linker without knowing its own concrete type.
type base struct {
	mu      sync.Mutex
	self    Proxy
	subobj  any
	xid     types.XID
	version types.Version
	linker  Linker
}

func (b *base) XID() types.XID { b.mu.Lock(); defer b.mu.Unlock(); return b.xid }

func (b *base) SetXID(x types.XID) { b.mu.Lock(); defer b.mu.Unlock(); b.xid = x }

func (b *base) Version() types.Version { b.mu.Lock(); defer b.mu.Unlock(); return b.version }

func (b *base) SetVersion(v types.Version) { b.mu.Lock(); defer b.mu.Unlock(); b.version = v }

func (b *base) Linker() Linker { b.mu.Lock(); defer b.mu.Unlock(); return b.linker }

func (b *base) SetLinker(l Linker) { b.mu.Lock(); defer b.mu.Unlock(); b.linker = l }

func (b *base) Subobj() any { b.mu.Lock(); defer b.mu.Unlock(); return b.subobj }

func (b *base) SetSubobj(v any) { b.mu.Lock(); defer b.mu.Unlock(); b.subobj = v }

// Linked reports whether this proxy is currently attached to a Manager.
func (b *base) Linked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linker != nil
}

// rebase gives an up-to-date view of the proxy's subobj: a detached or
// already-current proxy returns its cached subobj unchanged;
// otherwise it re-reads the linker's object map until it observes a
// version-consistent value, or detaches itself if its xid has fallen out
// of the map (the object was superseded by a refresh that dropped it).
func (b *base) rebase() any {
	b.mu.Lock()
	linker := b.linker
	subobj := b.subobj
	version := b.version
	xid := b.xid
	b.mu.Unlock()

	if linker == nil || version == linker.CurrentVersion() {
		return subobj
	}

	for {
		observed := linker.CurrentVersion()
		latest, ok := linker.Lookup(xid)
		if !ok {
			b.mu.Lock()
			b.linker = nil
			b.mu.Unlock()
			return subobj
		}
		if observed == linker.CurrentVersion() {
			sub := latest.Subobj()
			b.mu.Lock()
			b.subobj = sub
			b.version = observed
			b.mu.Unlock()
			return sub
		}
	}
}

// mutate mirrors _call_with_latest: it rebases to the latest subobj if
// stale, shadow-copies it via copyFn on the first write within the
// active transaction, applies apply, and traces the shadow copy with the
// Linker so an enclosing transaction can roll it back. apply receives
// the (possibly freshly copied) subobj and returns the subobj to store;
// its return value is also what mutate returns to the caller.
func (b *base) mutate(copyFn func(any) any, apply func(any) any) any {
	b.mu.Lock()
	linker := b.linker
	xid := b.xid
	subobj := b.subobj
	version := b.version
	self := b.self
	b.mu.Unlock()

	if linker == nil {
		result := apply(subobj)
		b.mu.Lock()
		b.subobj = result
		b.mu.Unlock()
		return result
	}

	current := linker.CurrentVersion()
	if version == current {
		_, ok := linker.Lookup(xid)
		if !ok {
			result := apply(subobj)
			b.mu.Lock()
			b.linker = nil
			b.subobj = result
			b.mu.Unlock()
			return result
		}

		work := subobj
		var prev any
		traceNeeded := !linker.IsDirty(xid)
		if traceNeeded {
			prev = work
			work = copyFn(work)
		}
		result := apply(work)
		b.mu.Lock()
		b.subobj = result
		b.mu.Unlock()
		if traceNeeded {
			_ = linker.Trace(self, prev)
		}
		return result
	}

	for {
		observed := linker.CurrentVersion()
		latest, ok := linker.Lookup(xid)
		if !ok {
			result := apply(subobj)
			b.mu.Lock()
			b.linker = nil
			b.subobj = result
			b.mu.Unlock()
			return result
		}
		if observed != linker.CurrentVersion() {
			continue
		}

		prev := latest.Subobj()
		work := copyFn(prev)
		result := apply(work)
		b.mu.Lock()
		b.version = observed
		b.subobj = result
		b.mu.Unlock()
		_ = linker.Trace(self, prev)
		return result
	}
}
