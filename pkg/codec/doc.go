/*
Package codec implements Dump/Load, the wire serialiser for a
distributed-object graph.

The wire envelope (wire.go) is an object table keyed by a
encoder-local xid: every distributed object proxy (pkg/object's DList,
DSet, DDict, DByteArray, Record) is written once and referenced from
everywhere else in the graph by that xid, which is how structure
sharing survives a dump/load round trip. Plain scalars are not deduped
this way — per the container semantics in pkg/object, only proxies
need identity to be preserved.

encoding/gob is the leaf-value encoder: concrete types that will flow
through a DList/DSet/DDict element, a Record field, or a bare scalar
Dump call must be registered with Register (a thin wrapper over
gob.Register) before they can round-trip. A handful of common scalar
kinds are pre-registered by this package's init.

Load reconstructs proxies and Links each one into the object.Linker it
is given (normally a *manager.Manager), so a loaded graph is
immediately a live, MVCC-tracked graph rather than a detached copy.
*/
package codec

import (
	"encoding/gob"

	"github.com/cuemby/dstore/pkg/object"
)

// Register makes a concrete type eligible to flow through a scalar
// slot (a bare Dump/Load value, a container element, or a record
// field). It is a thin wrapper over gob.Register, added so call sites
// outside this package don't need to import encoding/gob themselves.
func Register(value any) {
	gob.Register(value)
}

func init() {
	for _, v := range []any{
		"", 0, int64(0), uint64(0), float64(0), false, []byte(nil),
		object.Bytes(""), object.Tuple(""), object.FrozenSet(""),
	} {
		gob.Register(v)
	}
}
