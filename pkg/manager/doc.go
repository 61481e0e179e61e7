/*
Package manager implements the Manager: the per-process coordinator
that owns a cached distributed-object graph, assigns object identities,
tracks dirtiness, serialises and deserialises snapshots, and drives the
refresh/commit cycle against a pkg/backend.Backend.

# Architecture

A Manager wraps exactly one Backend handle:

	┌───────────────────────── MANAGER ─────────────────────────┐
	│                                                             │
	│  read / write / try_write / refresh / transaction / ...    │
	│                      │                                     │
	│         objmap (canonical)   new_objmap (staging)          │
	│                      │                                     │
	│            pkg/txn.Transaction (shared, reused)             │
	│                      │                                     │
	│              pkg/codec.Dump / Load (wire format)            │
	│                      │                                     │
	│                 pkg/backend.Backend                         │
	└─────────────────────────────────────────────────────────────┘

	plus one background watcher goroutine (watcher.go) holding only a
	weak.Pointer back to the Manager, polling the backend for foreign
	changes.

# Usage

	be := memory.NewBackend(store)
	mgr, err := manager.New(be, manager.WithRetries(5))
	if err != nil {
		log.Fatal(err)
	}

	root, err := mgr.Read(ctx, nil)

	tr := mgr.Transaction(ctx)
	list := root.(*object.DList)
	list.Append("new item")
	err = tr.End(ctx, nil)

Or, for automatic retry on conflict:

	err = mgr.Transactional(ctx, func(tr *txn.Transaction) error {
		list.Append("new item")
		return nil
	})

# Object identity

Every distributed object a caller creates or decodes is linked to
exactly one Manager: linking assigns it an xid (unique within that
Manager) and registers it in the Manager's staging map. A refresh,
write, or try_write call atomically swaps that staging map in as the
new canonical object map, so readers never observe a half-built graph.

# Concurrency

A single mutex serialises the Manager's refresh/write/try_write/link
critical sections. The shared Transaction object (pkg/txn) is
reentrant across nested Begin/End pairs; only the outermost pair
actually commits or rolls back.
*/
package manager
