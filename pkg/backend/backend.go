// Package backend declares the narrow contract any versioned storage
// adapter must satisfy to back a Manager: read the current blob and its
// version, replace it unconditionally or conditionally (compare-and-
// swap), and wait for a foreign write. Concrete adapters live in the
// memory, file and remote subpackages.
package backend

import (
	"context"

	"github.com/cuemby/dstore/pkg/types"
)

// Backend is the contract a versioned storage adapter must satisfy.
// version == 0 plays the role of "nothing stored yet" throughout: Read
// returns it with a nil blob, and TryWrite treats expected == 0 as
// "create only if absent".
type Backend interface {
	// Read returns the current version and blob. If nothing has been
	// stored yet, it returns version 0, a nil blob, and a nil error.
	Read(ctx context.Context) (version types.Version, blob []byte, err error)

	// Write unconditionally replaces the stored blob and returns the new
	// version.
	Write(ctx context.Context, blob []byte) (version types.Version, err error)

	// TryWrite replaces the stored blob only if the currently stored
	// version equals expected, reporting whether the replacement
	// happened and the version now stored (the new version on success,
	// the unchanged current version on failure).
	TryWrite(ctx context.Context, blob []byte, expected types.Version) (ok bool, version types.Version, err error)

	// TargetWait blocks until either a foreign write is observed or the
	// backend's own polling interval elapses, whichever comes first. It
	// reports whether a foreign write happened; false negatives
	// (returning false even though a foreign write happened) are
	// acceptable, but it must not block indefinitely.
	TargetWait(ctx context.Context) (changed bool, err error)

	// SetID assigns this backend instance's participant id, used to
	// filter out notifications caused by its own writes. It must be
	// called at most once; calling it a second time with a non-zero id
	// is an error.
	SetID(id types.ParticipantID) error
}
