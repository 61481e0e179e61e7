// Package types defines the primitive identifiers shared across dstore's
// packages: the distributed-object id (XID), the backend version counter,
// and the participant id that backends use to tell "my own write" apart
// from "somebody else's write".
//
// It exists mainly to let pkg/object and pkg/manager both depend on the
// same small vocabulary without creating an import cycle between them.
package types

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// XID identifies a distributed object within a Manager's object map.
// XID 0 is reserved: it marks an object that has never been linked.
type XID uint64

// Version is the monotonically increasing counter a Backend hands back
// on every successful write. Version 0 means "nothing stored yet".
type Version uint64

// ParticipantID identifies one participant (one Manager instance) to a
// Backend, so the backend can tell a participant's own write apart from
// a foreign one. It is the 32 hex characters of a UUIDv4 stored as raw
// ASCII bytes, matching the wire envelope used by the file and remote
// backends.
type ParticipantID [32]byte

// NewParticipantID generates a fresh, random participant id.
func NewParticipantID() ParticipantID {
	hexID := strings.ReplaceAll(uuid.New().String(), "-", "")
	var id ParticipantID
	copy(id[:], hexID)
	return id
}

// ParticipantIDFromString parses the 32-character hex form back into a
// ParticipantID. It is the inverse of ParticipantID.String.
func ParticipantIDFromString(s string) (ParticipantID, error) {
	var id ParticipantID
	if len(s) != 32 {
		return id, errInvalidParticipantID
	}
	if _, err := hex.DecodeString(s); err != nil {
		return id, errInvalidParticipantID
	}
	copy(id[:], s)
	return id, nil
}

func (p ParticipantID) String() string {
	return string(p[:])
}

// IsZero reports whether the id has never been assigned.
func (p ParticipantID) IsZero() bool {
	return p == ParticipantID{}
}
