package object

import "github.com/cuemby/dstore/pkg/types"

// Linker is the narrow surface a proxy needs from its owning Manager to
// participate in MVCC. It is satisfied by *manager.Manager; it lives here
// rather than in pkg/manager so pkg/object never has to import it back,
// which would create an import cycle.
type Linker interface {
	// CurrentVersion returns the version currently held by the linker.
	CurrentVersion() types.Version

	// Link assigns a fresh xid to p if it is not linked yet (xid == 0),
	// or validates that an existing xid isn't already claimed by a
	// distinct object, stamps p's version, and registers p in the
	// linker's in-progress object map. It returns the xid p ends up with.
	Link(p Proxy) (types.XID, error)

	// Lookup returns the canonical proxy registered for xid, if any.
	Lookup(xid types.XID) (Proxy, bool)

	// IsDirty reports whether xid has already been shadow-copied within
	// the linker's active transaction.
	IsDirty(xid types.XID) bool

	// Trace records that p's subobj was replaced by a shadow copy whose
	// pre-image was prevSubobj, wrapping the record in a transaction of
	// its own if the caller isn't already inside one.
	Trace(p Proxy, prevSubobj any) error
}

// Proxy is implemented by every distributed container (*DList, *DSet,
// *DDict, *DByteArray) and by *Record. The transaction engine and the
// serialiser operate on proxies through this interface instead of their
// concrete types.
type Proxy interface {
	XID() types.XID
	SetXID(types.XID)
	Version() types.Version
	SetVersion(types.Version)
	Linker() Linker
	SetLinker(Linker)
	Subobj() any
	SetSubobj(any)
}
