/*
Package txn implements the MVCC transaction engine layered on top of
pkg/object's proxies and a Host (satisfied by *manager.Manager).

Transaction traces distributed objects as they are shadow-copied by
pkg/object's mutate shim, and on commit publishes those copies to the
canonical object map before attempting a single version-checked write
through the Host. A failed write rolls back every traced object to its
pre-image.

Run drives the open/commit/retry loop: it opens a transaction, invokes
the caller's function, and retries on ErrConflict up to a retry budget
and/or deadline, mirroring a compare-and-swap retry loop rather than a
lock-wait.
*/
package txn
