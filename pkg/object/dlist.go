package object

import "fmt"

// DList is a distributed, MVCC-tracked analogue of a plain list: reads
// rebase to the latest committed contents, and the closed set of
// mutating operations (Append, Extend, Insert, Pop, Remove, Reverse,
// Sort, Clear, SetItem, DeleteItem) shadow-copy the backing slice before
// mutating it.
type DList struct {
	base
}

// NewDList creates a detached list proxy over the given elements. It
// becomes MVCC-tracked once it passes through a Manager (via Write,
// TryWrite, Dump or Load).
func NewDList(elems []any) *DList {
	d := &DList{}
	d.self = d
	cp := make([]any, len(elems))
	copy(cp, elems)
	d.subobj = cp
	return d
}

func copyAnySlice(v any) any {
	s := v.([]any)
	cp := make([]any, len(s))
	copy(cp, s)
	return cp
}

// Len returns the current number of elements.
func (d *DList) Len() int {
	return len(d.rebase().([]any))
}

// Get returns the element at index i.
func (d *DList) Get(i int) (any, error) {
	s := d.rebase().([]any)
	if i < 0 || i >= len(s) {
		return nil, fmt.Errorf("object: list index %d out of range (len %d)", i, len(s))
	}
	return s[i], nil
}

// Slice returns a copy of all current elements, in order.
func (d *DList) Slice() []any {
	s := d.rebase().([]any)
	cp := make([]any, len(s))
	copy(cp, s)
	return cp
}

// Index returns the index of the first element equal to v.
func (d *DList) Index(v any) (int, error) {
	s := d.rebase().([]any)
	for i, e := range s {
		if e == v {
			return i, nil
		}
	}
	return -1, fmt.Errorf("object: value not found in list")
}

// Count returns the number of elements equal to v.
func (d *DList) Count(v any) int {
	s := d.rebase().([]any)
	n := 0
	for _, e := range s {
		if e == v {
			n++
		}
	}
	return n
}

// Append adds v to the end of the list.
func (d *DList) Append(v any) {
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		return append(s, v)
	})
}

// Extend appends every element of vs to the list.
func (d *DList) Extend(vs []any) {
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		return append(s, vs...)
	})
}

// Insert inserts v before index i.
func (d *DList) Insert(i int, v any) {
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		if i < 0 {
			i = 0
		}
		if i > len(s) {
			i = len(s)
		}
		s = append(s, nil)
		copy(s[i+1:], s[i:])
		s[i] = v
		return s
	})
}

// Pop removes and returns the element at index i. A negative i counts
// from the end, matching the original list's default of popping the
// last element when no index is given.
func (d *DList) Pop(i int) (any, error) {
	var out any
	var outErr error
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		idx := i
		if idx < 0 {
			idx += len(s)
		}
		if idx < 0 || idx >= len(s) {
			outErr = fmt.Errorf("object: pop index %d out of range (len %d)", i, len(s))
			return s
		}
		out = s[idx]
		return append(s[:idx], s[idx+1:]...)
	})
	return out, outErr
}

// Remove deletes the first element equal to v.
func (d *DList) Remove(v any) error {
	var outErr error
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		for idx, e := range s {
			if e == v {
				return append(s[:idx], s[idx+1:]...)
			}
		}
		outErr = fmt.Errorf("object: value not found in list")
		return s
	})
	return outErr
}

// Clear removes every element.
func (d *DList) Clear() {
	d.mutate(copyAnySlice, func(any) any {
		return []any{}
	})
}

// Reverse reverses the list in place.
func (d *DList) Reverse() {
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
		return s
	})
}

// Sort sorts the list in place using less as the ordering predicate.
func (d *DList) Sort(less func(a, b any) bool) {
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		sortAny(s, less)
		return s
	})
}

func sortAny(s []any, less func(a, b any) bool) {
	// Insertion sort: the element type is arbitrary (any), so sort.Slice's
	// reflection-based swap is no cheaper, and this keeps the comparator
	// contract (less(a, b)) identical to callers' expectations.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// SetItem replaces the element at index i.
func (d *DList) SetItem(i int, v any) error {
	var outErr error
	d.mutate(copyAnySlice, func(subobj any) any {
		s := subobj.([]any)
		if i < 0 || i >= len(s) {
			outErr = fmt.Errorf("object: list index %d out of range (len %d)", i, len(s))
			return s
		}
		s[i] = v
		return s
	})
	return outErr
}

// DeleteItem removes the element at index i without returning it.
func (d *DList) DeleteItem(i int) error {
	_, err := d.Pop(i)
	return err
}
