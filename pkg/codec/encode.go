package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/cuemby/dstore/pkg/object"
)

// ManagerRef is a sentinel value: when it appears anywhere in the graph
// passed to Dump, it is encoded as wireManagerRef and Load decodes it
// back as a fresh ManagerRef{}; substituting the live Manager is left
// to the caller. It lets a graph
// carry a back-reference to its own owning Manager without the Manager
// itself ever needing to be gob-encoded.
type ManagerRef struct{}

type encoder struct {
	objects []wireObject
	ids     map[any]uint64
	next    uint64
}

func newEncoder() *encoder {
	return &encoder{ids: make(map[any]uint64), next: 1}
}

// reserve allocates id for p and appends a placeholder entry at that
// slot, so self-referential graphs terminate: a proxy that recurses into
// itself while being encoded finds its own (still-empty) id already in
// e.ids and stops.
func (e *encoder) reserve(p any) uint64 {
	id := e.next
	e.next++
	e.ids[p] = id
	e.objects = append(e.objects, wireObject{Xid: id})
	return id
}

func (e *encoder) set(id uint64, o wireObject) {
	o.Xid = id
	e.objects[id-1] = o
}

func (e *encoder) emit(o wireObject) uint64 {
	id := e.next
	e.next++
	o.Xid = id
	e.objects = append(e.objects, o)
	return id
}

// Dump serializes root, and everything reachable from it, into a wire
// envelope. Accepted values are plain Go scalars, the mutable container
// proxies in pkg/object (*DList, *DSet, *DDict, *DByteArray), *object.
// Record, the immutable object.Bytes/Tuple/FrozenSet kinds, and
// ManagerRef.
func Dump(root any) ([]byte, error) {
	enc := newEncoder()
	rootID, err := enc.encodeValue(root)
	if err != nil {
		return nil, err
	}

	env := wireEnvelope{Root: rootID, Objects: enc.objects}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("codec: encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *encoder) encodeValue(v any) (uint64, error) {
	switch t := v.(type) {
	case nil:
		return e.encodeScalar(nil)
	case ManagerRef:
		return e.emit(wireObject{Kind: wireManagerRef}), nil
	case *object.DList:
		return e.encodeProxy(t)
	case *object.DSet:
		return e.encodeProxy(t)
	case *object.DDict:
		return e.encodeProxy(t)
	case *object.DByteArray:
		return e.encodeProxy(t)
	case *object.Record:
		return e.encodeProxy(t)
	case object.Bytes:
		return e.encodeScalar(t)
	case object.Tuple:
		return e.encodeScalar(t)
	case object.FrozenSet:
		return e.encodeScalar(t)
	default:
		return e.encodeScalar(v)
	}
}

// encodeProxy dedupes by pointer identity: the same *DList reached via
// two different paths in the graph is written once and referenced
// everywhere else by Xid, which is how structure sharing survives a
// dump/load round trip.
func (e *encoder) encodeProxy(p any) (uint64, error) {
	if id, ok := e.ids[p]; ok {
		return id, nil
	}
	id := e.reserve(p)

	switch c := p.(type) {
	case *object.DList:
		return e.encodeList(id, c)
	case *object.DSet:
		return e.encodeSet(id, c)
	case *object.DDict:
		return e.encodeDict(id, c)
	case *object.DByteArray:
		return e.encodeByteArray(id, c)
	case *object.Record:
		return e.encodeRecord(id, c)
	default:
		return 0, fmt.Errorf("codec: unsupported proxy type %T", p)
	}
}

func (e *encoder) encodeList(id uint64, list *object.DList) (uint64, error) {
	elems := list.Slice()
	children := make([]uint64, len(elems))
	for i, el := range elems {
		cid, err := e.encodeValue(el)
		if err != nil {
			return 0, err
		}
		children[i] = cid
	}
	e.set(id, wireObject{Kind: wireList, Children: children})
	return id, nil
}

func (e *encoder) encodeSet(id uint64, set *object.DSet) (uint64, error) {
	elems := set.ToSlice()
	children := make([]uint64, len(elems))
	for i, el := range elems {
		cid, err := e.encodeValue(el)
		if err != nil {
			return 0, err
		}
		children[i] = cid
	}
	e.set(id, wireObject{Kind: wireSet, Children: children})
	return id, nil
}

func (e *encoder) encodeDict(id uint64, dict *object.DDict) (uint64, error) {
	items := dict.Items()
	pairs := make([]wireKV, 0, len(items))
	for k, v := range items {
		kid, err := e.encodeValue(k)
		if err != nil {
			return 0, err
		}
		vid, err := e.encodeValue(v)
		if err != nil {
			return 0, err
		}
		pairs = append(pairs, wireKV{Key: kid, Value: vid})
	}
	e.set(id, wireObject{Kind: wireDict, Pairs: pairs})
	return id, nil
}

func (e *encoder) encodeByteArray(id uint64, ba *object.DByteArray) (uint64, error) {
	e.set(id, wireObject{Kind: wireByteArray, Scalar: append([]byte(nil), ba.Bytes()...)})
	return id, nil
}

func (e *encoder) encodeRecord(id uint64, r *object.Record) (uint64, error) {
	listID, err := e.encodeProxy(r.ValueList())
	if err != nil {
		return 0, err
	}
	e.set(id, wireObject{Kind: wireRecord, Class: r.Class(), Fields: r.Fields(), ValuesXid: listID})
	return id, nil
}

// scalarBox wraps a leaf value so gob always has a concrete struct to
// encode, even when the value itself is a nil interface (gob refuses to
// encode a bare nil interface{} at the top level).
type scalarBox struct {
	V any
}

func (e *encoder) encodeScalar(v any) (uint64, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(scalarBox{V: v}); err != nil {
		return 0, fmt.Errorf("codec: encode scalar %T: %w", v, err)
	}
	return e.emit(wireObject{Kind: wireScalar, Scalar: buf.Bytes()}), nil
}
