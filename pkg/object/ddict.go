package object

import "fmt"

// DDict is a distributed, MVCC-tracked analogue of a plain dict/map.
type DDict struct {
	base
}

// NewDDict creates a detached dict proxy over the given entries.
func NewDDict(entries map[any]any) *DDict {
	d := &DDict{}
	d.self = d
	m := make(map[any]any, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	d.subobj = m
	return d
}

func copyAnyMap(v any) any {
	m := v.(map[any]any)
	cp := make(map[any]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Len returns the number of entries.
func (d *DDict) Len() int {
	return len(d.rebase().(map[any]any))
}

// Get returns the value stored at k, if any.
func (d *DDict) Get(k any) (any, bool) {
	v, ok := d.rebase().(map[any]any)[k]
	return v, ok
}

// Keys returns the current keys in unspecified order.
func (d *DDict) Keys() []any {
	m := d.rebase().(map[any]any)
	out := make([]any, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Values returns the current values in unspecified order.
func (d *DDict) Values() []any {
	m := d.rebase().(map[any]any)
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// Items returns a copy of the current entries.
func (d *DDict) Items() map[any]any {
	m := d.rebase().(map[any]any)
	cp := make(map[any]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Set stores v at k, replacing any existing entry.
func (d *DDict) Set(k, v any) {
	d.mutate(copyAnyMap, func(subobj any) any {
		m := subobj.(map[any]any)
		m[k] = v
		return m
	})
}

// Delete removes the entry at k, returning an error if it was absent.
func (d *DDict) Delete(k any) error {
	var outErr error
	d.mutate(copyAnyMap, func(subobj any) any {
		m := subobj.(map[any]any)
		if _, ok := m[k]; !ok {
			outErr = fmt.Errorf("object: key %v not found", k)
			return m
		}
		delete(m, k)
		return m
	})
	return outErr
}

// Update merges entries into d, overwriting existing keys.
func (d *DDict) Update(entries map[any]any) {
	d.mutate(copyAnyMap, func(subobj any) any {
		m := subobj.(map[any]any)
		for k, v := range entries {
			m[k] = v
		}
		return m
	})
}

// Pop removes and returns the value at k, or returns an error if absent.
func (d *DDict) Pop(k any) (any, error) {
	var out any
	var outErr error
	d.mutate(copyAnyMap, func(subobj any) any {
		m := subobj.(map[any]any)
		v, ok := m[k]
		if !ok {
			outErr = fmt.Errorf("object: key %v not found", k)
			return m
		}
		out = v
		delete(m, k)
		return m
	})
	return out, outErr
}

// PopItem removes and returns an arbitrary (key, value) pair.
func (d *DDict) PopItem() (any, any, error) {
	var outK, outV any
	var outErr error
	d.mutate(copyAnyMap, func(subobj any) any {
		m := subobj.(map[any]any)
		if len(m) == 0 {
			outErr = fmt.Errorf("object: dict is empty")
			return m
		}
		for k, v := range m {
			outK, outV = k, v
			delete(m, k)
			break
		}
		return m
	})
	return outK, outV, outErr
}

// SetDefault returns the value at k, inserting dfl there first if k was
// absent.
func (d *DDict) SetDefault(k, dfl any) any {
	var out any
	d.mutate(copyAnyMap, func(subobj any) any {
		m := subobj.(map[any]any)
		if v, ok := m[k]; ok {
			out = v
			return m
		}
		m[k] = dfl
		out = dfl
		return m
	})
	return out
}

// Clear removes every entry.
func (d *DDict) Clear() {
	d.mutate(copyAnyMap, func(any) any {
		return map[any]any{}
	})
}
