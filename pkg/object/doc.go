/*
Package object implements the distributed-object layer: proxy wrappers
over mutable containers (DList, DSet, DDict, DByteArray) and records
(Record) that participate in a Manager's optimistic MVCC protocol.

# Rebase-on-read, shadow-copy-on-write

Every proxy embeds base, which implements two shims against whatever
concrete Go value it wraps:

  - rebase: a read that is behind the linker's current version re-fetches
    the canonical value from the object map before returning it.
  - mutate: a write shadow-copies the backing value the first time it is
    touched within the active transaction (later writes in the same
    transaction reuse the same copy), applies the mutation, and traces
    the copy with the Linker so a rolled-back transaction can restore the
    pre-image.

A detached proxy (one that has never passed through a Manager, or whose
xid has fallen out of the object map) behaves like a plain, unshared
value: rebase and mutate both degrade to operating on the cached subobj
directly.

# Linker

Linker is the minimal interface a Manager must satisfy for proxies to
participate in MVCC; it is declared here, not in pkg/manager, so this
package never imports its only caller.
*/
package object
