package txn

import "errors"

// Sentinel errors for typed handling on the caller side, matching the
// teacher corpus's convention of exporting errors.New values rather than
// custom error structs for outcomes callers branch on with errors.Is.
var (
	// ErrConflict is returned when a transaction's commit lost a race: the
	// backend rejected the write because the root version had moved on.
	ErrConflict = errors.New("txn: commit rejected, version conflict")

	// ErrRetriesExceeded is returned by Run when as many attempts as the
	// configured retry budget have all conflicted (a budget of 0 still
	// allows one attempt).
	ErrRetriesExceeded = errors.New("txn: retries exceeded")

	// ErrTimeout is returned by Run when a transactional call's deadline
	// passes before it commits successfully.
	ErrTimeout = errors.New("txn: timed out waiting for a clean commit")

	// ErrInvalidRetries is returned eagerly by Run if retries is negative.
	ErrInvalidRetries = errors.New("txn: retries must be a non-negative integer")

	// ErrInvalidTimeout is returned eagerly by Run if timeout is negative.
	ErrInvalidTimeout = errors.New("txn: timeout must be a non-negative duration")
)
