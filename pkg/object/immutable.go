package object

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Bytes is an immutable byte string, distinguished at the type level
// from the mutable DByteArray. Being immutable, it needs no MVCC
// tracking: it is copied by value like any other scalar. It is backed
// by a Go string rather than []byte so it stays comparable and
// hashable — usable as a list element, set member, or dict key
// anywhere in the object graph, same as spec.md §3's other immutable
// scalars.
type Bytes string

// NewBytes builds a Bytes from raw bytes.
func NewBytes(b []byte) Bytes { return Bytes(b) }

// Bytes returns the raw byte contents.
func (b Bytes) Bytes() []byte { return []byte(b) }

// Len returns the number of bytes.
func (b Bytes) Len() int { return len(b) }

// Tuple is an immutable, ordered sequence. It is represented as a
// single canonical string rather than a Go slice, so it stays
// comparable and hashable like Bytes above; construct one with
// NewTuple and inspect it with Elems.
type Tuple string

// NewTuple builds a Tuple from elems, in order. Elements must be one
// of the scalar kinds encodeMember understands: nil, bool, int,
// int64, uint64, float64, string, Bytes, or a nested Tuple/FrozenSet.
func NewTuple(elems ...any) (Tuple, error) {
	var sb strings.Builder
	for _, e := range elems {
		enc, err := encodeMember(e)
		if err != nil {
			return "", fmt.Errorf("object: new tuple: %w", err)
		}
		sb.WriteString(enc)
	}
	return Tuple(sb.String()), nil
}

// Elems decodes the tuple back into its ordered elements.
func (t Tuple) Elems() ([]any, error) {
	return decodeMembers(string(t))
}

// Len returns the number of elements.
func (t Tuple) Len() (int, error) {
	elems, err := t.Elems()
	if err != nil {
		return 0, err
	}
	return len(elems), nil
}

// FrozenSet is an immutable set. Like Tuple, it is represented as a
// single canonical string so it stays comparable and hashable: members
// are deduplicated and sorted into a fixed order at construction time,
// so two FrozenSets built from the same members (in any order) are
// always equal and always hash alike.
type FrozenSet string

// NewFrozenSet builds a FrozenSet from the given members, which must be
// one of the scalar kinds encodeMember understands (see Tuple).
func NewFrozenSet(members ...any) (FrozenSet, error) {
	seen := make(map[string]struct{}, len(members))
	parts := make([]string, 0, len(members))
	for _, m := range members {
		enc, err := encodeMember(m)
		if err != nil {
			return "", fmt.Errorf("object: new frozenset: %w", err)
		}
		if _, ok := seen[enc]; ok {
			continue
		}
		seen[enc] = struct{}{}
		parts = append(parts, enc)
	}
	sort.Strings(parts)
	return FrozenSet(strings.Join(parts, "")), nil
}

// Contains reports whether v is a member.
func (f FrozenSet) Contains(v any) (bool, error) {
	enc, err := encodeMember(v)
	if err != nil {
		return false, fmt.Errorf("object: frozenset contains: %w", err)
	}
	s := string(f)
	for len(s) > 0 {
		_, n, derr := decodeMember(s)
		if derr != nil {
			return false, derr
		}
		if s[:n] == enc {
			return true, nil
		}
		s = s[n:]
	}
	return false, nil
}

// Len returns the number of members.
func (f FrozenSet) Len() (int, error) {
	members, err := f.ToSlice()
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// ToSlice returns the members in the canonical (sorted-by-encoding)
// order NewFrozenSet settled on, not necessarily the order they were
// passed in.
func (f FrozenSet) ToSlice() ([]any, error) {
	return decodeMembers(string(f))
}

// --- canonical scalar member encoding, shared by Tuple and FrozenSet ---
//
// Each member is rendered as a one-byte type tag, a 4-byte big-endian
// length, and the payload, so members can be concatenated and split
// back apart unambiguously regardless of what bytes a string or Bytes
// payload happens to contain.

const (
	memberNil byte = iota
	memberInt
	memberInt64
	memberUint64
	memberFloat64
	memberBool
	memberString
	memberBytes
	memberTuple
	memberFrozenSet
)

func encodeMember(v any) (string, error) {
	var tag byte
	var payload []byte

	switch x := v.(type) {
	case nil:
		tag = memberNil
	case bool:
		tag = memberBool
		if x {
			payload = []byte{1}
		} else {
			payload = []byte{0}
		}
	case int:
		tag = memberInt
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(int64(x)))
	case int64:
		tag = memberInt64
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(x))
	case uint64:
		tag = memberUint64
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, x)
	case float64:
		tag = memberFloat64
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, math.Float64bits(x))
	case string:
		tag = memberString
		payload = []byte(x)
	case Bytes:
		tag = memberBytes
		payload = []byte(x)
	case Tuple:
		tag = memberTuple
		payload = []byte(x)
	case FrozenSet:
		tag = memberFrozenSet
		payload = []byte(x)
	default:
		return "", fmt.Errorf("unsupported tuple/frozenset member type %T", v)
	}

	buf := make([]byte, 0, 5+len(payload))
	buf = append(buf, tag)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)
	return string(buf), nil
}

// decodeMember decodes the single member at the start of s, returning
// its value and the number of bytes it consumed.
func decodeMember(s string) (any, int, error) {
	if len(s) < 5 {
		return nil, 0, fmt.Errorf("object: truncated tuple/frozenset member")
	}
	tag := s[0]
	n := int(binary.BigEndian.Uint32([]byte(s[1:5])))
	if len(s) < 5+n {
		return nil, 0, fmt.Errorf("object: truncated tuple/frozenset member payload")
	}
	payload := s[5 : 5+n]
	end := 5 + n

	switch tag {
	case memberNil:
		return nil, end, nil
	case memberBool:
		return payload[0] != 0, end, nil
	case memberInt:
		return int(int64(binary.BigEndian.Uint64([]byte(payload)))), end, nil
	case memberInt64:
		return int64(binary.BigEndian.Uint64([]byte(payload))), end, nil
	case memberUint64:
		return binary.BigEndian.Uint64([]byte(payload)), end, nil
	case memberFloat64:
		return math.Float64frombits(binary.BigEndian.Uint64([]byte(payload))), end, nil
	case memberString:
		return payload, end, nil
	case memberBytes:
		return Bytes(payload), end, nil
	case memberTuple:
		return Tuple(payload), end, nil
	case memberFrozenSet:
		return FrozenSet(payload), end, nil
	default:
		return nil, 0, fmt.Errorf("object: unknown tuple/frozenset member tag %d", tag)
	}
}

func decodeMembers(s string) ([]any, error) {
	var out []any
	for len(s) > 0 {
		v, n, err := decodeMember(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		s = s[n:]
	}
	return out, nil
}
