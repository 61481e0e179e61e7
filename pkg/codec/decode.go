package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/cuemby/dstore/pkg/object"
)

// Load decodes data into the value graph it describes, linking every
// distributed object proxy it reconstructs into target (typically a
// *manager.Manager). Any ManagerRef sentinel encoded by Dump is restored
// as a fresh ManagerRef{} — callers that need the live Manager back
// substitute it themselves, since pkg/codec cannot import pkg/manager.
func Load(data []byte, target object.Linker) (any, error) {
	var env wireEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("codec: decode envelope: %w", err)
	}

	d := newDecoder(env, target)
	return d.resolve(env.Root)
}

type decoder struct {
	byID   map[uint64]*wireObject
	values map[uint64]any
	target object.Linker
}

func newDecoder(env wireEnvelope, target object.Linker) *decoder {
	d := &decoder{
		byID:   make(map[uint64]*wireObject, len(env.Objects)),
		values: make(map[uint64]any, len(env.Objects)),
		target: target,
	}
	for i := range env.Objects {
		o := &env.Objects[i]
		d.byID[o.Xid] = o
	}
	return d
}

func (d *decoder) resolve(id uint64) (any, error) {
	if v, ok := d.values[id]; ok {
		return v, nil
	}

	o, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("codec: dangling reference %d", id)
	}

	switch o.Kind {
	case wireScalar:
		var box scalarBox
		if err := gob.NewDecoder(bytes.NewReader(o.Scalar)).Decode(&box); err != nil {
			return nil, fmt.Errorf("codec: decode scalar %d: %w", id, err)
		}
		d.values[id] = box.V
		return box.V, nil

	case wireManagerRef:
		ref := ManagerRef{}
		d.values[id] = ref
		return ref, nil

	case wireList:
		list := object.NewDList(nil)
		d.values[id] = list // registered before recursing: breaks cycles
		elems, err := d.resolveAll(o.Children)
		if err != nil {
			return nil, err
		}
		list.Extend(elems)
		if _, err := d.target.Link(list); err != nil {
			return nil, fmt.Errorf("codec: link list %d: %w", id, err)
		}
		return list, nil

	case wireSet:
		set := object.NewDSet(nil)
		d.values[id] = set
		elems, err := d.resolveAll(o.Children)
		if err != nil {
			return nil, err
		}
		for _, el := range elems {
			set.Add(el)
		}
		if _, err := d.target.Link(set); err != nil {
			return nil, fmt.Errorf("codec: link set %d: %w", id, err)
		}
		return set, nil

	case wireDict:
		dict := object.NewDDict(nil)
		d.values[id] = dict
		for _, kv := range o.Pairs {
			k, err := d.resolve(kv.Key)
			if err != nil {
				return nil, err
			}
			v, err := d.resolve(kv.Value)
			if err != nil {
				return nil, err
			}
			dict.Set(k, v)
		}
		if _, err := d.target.Link(dict); err != nil {
			return nil, fmt.Errorf("codec: link dict %d: %w", id, err)
		}
		return dict, nil

	case wireByteArray:
		ba := object.NewDByteArray(append([]byte(nil), o.Scalar...))
		d.values[id] = ba
		if _, err := d.target.Link(ba); err != nil {
			return nil, fmt.Errorf("codec: link bytearray %d: %w", id, err)
		}
		return ba, nil

	case wireRecord:
		listVal, err := d.resolve(o.ValuesXid)
		if err != nil {
			return nil, err
		}
		values, ok := listVal.(*object.DList)
		if !ok {
			return nil, fmt.Errorf("codec: record %d backing value is not a list", id)
		}
		rec, err := object.AttachRecord(o.Class, o.Fields, values)
		if err != nil {
			return nil, fmt.Errorf("codec: attach record %d: %w", id, err)
		}
		d.values[id] = rec
		return rec, nil

	default:
		return nil, fmt.Errorf("codec: unknown wire kind %d", o.Kind)
	}
}

func (d *decoder) resolveAll(ids []uint64) ([]any, error) {
	out := make([]any, len(ids))
	for i, id := range ids {
		v, err := d.resolve(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
