package object

import (
	"fmt"

	"github.com/cuemby/dstore/pkg/types"
)

// Record is the struct-like value kind for arbitrary user objects: its
// named fields are slots in a single backing *DList, so field writes
// participate in MVCC exactly like list element writes. Class and
// Fields round-trip through the serialiser so a decoded Record can be
// rebuilt with its field names intact even though Go has no runtime
// class registry to consult.
type Record struct {
	class  string
	fields []string
	values *DList
}

// NewRecord creates a detached record of the given class with the given
// field names and matching values.
func NewRecord(class string, fields []string, values []any) (*Record, error) {
	if len(fields) != len(values) {
		return nil, fmt.Errorf("object: record %s has %d fields but %d values", class, len(fields), len(values))
	}
	return &Record{
		class:  class,
		fields: append([]string(nil), fields...),
		values: NewDList(values),
	}, nil
}

// Class returns the record's type name.
func (r *Record) Class() string { return r.class }

// Fields returns the record's field names, in declaration order.
func (r *Record) Fields() []string {
	return append([]string(nil), r.fields...)
}

// ValueList returns the *DList backing this record's fields.
func (r *Record) ValueList() *DList { return r.values }

func (r *Record) indexOf(name string) (int, error) {
	for i, f := range r.fields {
		if f == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("object: record %s has no field %q", r.class, name)
}

// Field reads the current value of the named field.
func (r *Record) Field(name string) (any, error) {
	idx, err := r.indexOf(name)
	if err != nil {
		return nil, err
	}
	return r.values.Get(idx)
}

// SetField writes the named field.
func (r *Record) SetField(name string, v any) error {
	idx, err := r.indexOf(name)
	if err != nil {
		return err
	}
	return r.values.SetItem(idx, v)
}

// AttachRecord wraps an already-constructed DList as a record's backing
// storage. It exists for decoders that have already resolved (and
// linked) the backing list as its own graph node and must not duplicate
// it by copying values into a second DList.
func AttachRecord(class string, fields []string, values *DList) (*Record, error) {
	// Read the cached subobj directly rather than through Len's rebase:
	// the list is already linked, and a rebase would call back into the
	// Linker, which a decoder may be holding locked.
	n := len(values.Subobj().([]any))
	if n != len(fields) {
		return nil, fmt.Errorf("object: record %s has %d fields but backing list has %d values", class, len(fields), n)
	}
	return &Record{
		class:  class,
		fields: append([]string(nil), fields...),
		values: values,
	}, nil
}

// Descriptor returns a FieldDescriptor for the named field, for callers
// that want to read/write a field repeatedly without re-resolving its
// name each time.
func (r *Record) Descriptor(name string) (FieldDescriptor, error) {
	idx, err := r.indexOf(name)
	if err != nil {
		return FieldDescriptor{}, err
	}
	return FieldDescriptor{name: name, idx: idx}, nil
}

// FieldDescriptor is a resolved handle onto one field slot of a
// Record's backing DList.
type FieldDescriptor struct {
	name string
	idx  int
}

func (f FieldDescriptor) Name() string { return f.name }

func (f FieldDescriptor) Get(r *Record) (any, error) {
	return r.values.Get(f.idx)
}

func (f FieldDescriptor) Set(r *Record, v any) error {
	return r.values.SetItem(f.idx, v)
}

// XID, Version, Linker and Subobj/SetSubobj delegate to the backing
// DList so a Record satisfies Proxy and can be linked, traced and rolled
// back exactly like any other container.

func (r *Record) XID() types.XID             { return r.values.XID() }
func (r *Record) SetXID(x types.XID)         { r.values.SetXID(x) }
func (r *Record) Version() types.Version     { return r.values.Version() }
func (r *Record) SetVersion(v types.Version) { r.values.SetVersion(v) }
func (r *Record) Linker() Linker             { return r.values.Linker() }
func (r *Record) SetLinker(l Linker)         { r.values.SetLinker(l) }
func (r *Record) Subobj() any                { return r.values.Subobj() }
func (r *Record) SetSubobj(v any)            { r.values.SetSubobj(v) }
