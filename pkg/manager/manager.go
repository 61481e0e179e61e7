package manager

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
	"weak"

	"github.com/cuemby/dstore/pkg/backend"
	"github.com/cuemby/dstore/pkg/codec"
	"github.com/cuemby/dstore/pkg/log"
	"github.com/cuemby/dstore/pkg/metrics"
	"github.com/cuemby/dstore/pkg/object"
	"github.com/cuemby/dstore/pkg/txn"
	"github.com/cuemby/dstore/pkg/types"
	"github.com/rs/zerolog"
)

// Manager is the per-process coordinator of a distributed-object graph.
// It owns a single backend.Backend handle, the currently committed
// object map, and the monotonic version counter the backend hands back
// on every successful write.
type Manager struct {
	mu          sync.Mutex
	be          backend.Backend
	participant types.ParticipantID

	root    any
	rootSet bool
	version types.Version

	objmap    map[types.XID]object.Proxy
	newObjmap map[types.XID]object.Proxy
	nextXID   types.XID

	trans       *txn.Transaction
	transActive bool
	needsUpdate bool

	log            zerolog.Logger
	defaultRetries *int
	defaultTimeout *time.Duration
}

// Option configures a Manager at construction time.
type Option func(*config)

type config struct {
	logger  zerolog.Logger
	retries *int
	timeout *time.Duration
}

// WithLogger overrides the component logger a Manager (and the
// transactions/watcher it drives) logs through. Defaults to
// log.WithComponent("manager").
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRetries sets the default retry ceiling Transactional uses when the
// caller doesn't supply its own txn.RunOptions.
func WithRetries(n int) Option {
	return func(c *config) { c.retries = &n }
}

// WithTimeout sets the default deadline Transactional uses when the
// caller doesn't supply its own txn.RunOptions.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = &d }
}

// New creates a Manager over be, assigning it a fresh participant id and
// starting its background watcher. be must not already have an id set
// by another Manager.
func New(be backend.Backend, opts ...Option) (*Manager, error) {
	cfg := &config{logger: log.WithComponent("manager")}
	for _, opt := range opts {
		opt(cfg)
	}

	id := types.NewParticipantID()
	if err := be.SetID(id); err != nil {
		return nil, fmt.Errorf("manager: set participant id: %w", err)
	}

	m := &Manager{
		be:             be,
		participant:    id,
		objmap:         make(map[types.XID]object.Proxy),
		newObjmap:      make(map[types.XID]object.Proxy),
		log:            cfg.logger,
		defaultRetries: cfg.retries,
		defaultTimeout: cfg.timeout,
	}
	m.trans = txn.New(m)

	go watch(weak.Make(m))

	return m, nil
}

// Close releases the Manager's backend handle, if it implements
// io.Closer. The background watcher exits on its own once this Manager
// becomes unreachable; Close does not wait for that.
func (m *Manager) Close() error {
	if closer, ok := m.be.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Stats is the subset of Manager state this package's Collector
// samples on a timer.
type Stats struct {
	Version       types.Version
	LinkedObjects int
}

// Stats reports the Manager's current version and the number of
// objects tracked in its canonical object map.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Version: m.version, LinkedObjects: len(m.objmap)}
}

// --- object.Linker ---

// CurrentVersion returns the version this Manager currently holds.
func (m *Manager) CurrentVersion() types.Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Link assigns p a fresh xid if it has none yet, or validates that an
// existing xid isn't already claimed by a distinct object, then
// registers p in the Manager's staging map.
func (m *Manager) Link(p object.Proxy) (types.XID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkLocked(p)
}

// linkLocked is Link's body, factored out so internal callers that
// already hold m.mu (refresh/write/try_write's decode step) can invoke
// it without deadlocking on a reentrant lock.
func (m *Manager) linkLocked(p object.Proxy) (types.XID, error) {
	xid := p.XID()
	if xid == 0 {
		m.nextXID++
		xid = m.nextXID
		p.SetXID(xid)
	} else if existing, ok := m.newObjmap[xid]; ok && existing != p {
		return 0, fmt.Errorf("manager: xid %d already claimed by a different object", xid)
	}
	p.SetVersion(m.version)
	p.SetLinker(m)
	m.newObjmap[xid] = p
	return xid, nil
}

// Lookup returns the canonical proxy registered for xid, if any.
func (m *Manager) Lookup(xid types.XID) (object.Proxy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.objmap[xid]
	return p, ok
}

// Canonical is Lookup under the name pkg/txn's Host interface expects.
func (m *Manager) Canonical(xid types.XID) (object.Proxy, bool) {
	return m.Lookup(xid)
}

// IsDirty reports whether xid has a recorded pre-image in the Manager's
// current transaction, if one is in flight.
func (m *Manager) IsDirty(xid types.XID) bool {
	m.mu.Lock()
	active := m.transActive
	m.mu.Unlock()
	if !active {
		return false
	}
	return m.trans.IsTraced(xid)
}

// IsLinked reports whether p is registered in this Manager's canonical
// object map.
func (m *Manager) IsLinked(p object.Proxy) bool {
	if p == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objmap[p.XID()]
	return ok
}

// Trace implements object.Linker for the proxy write path: if a
// transaction is already open on this Manager, it just records the
// pre-image against it; otherwise it opens a one-mutation transaction of
// its own and commits it immediately, matching the "the proxy detects it
// is outside a transaction, opens one, ... commits" write path.
func (m *Manager) Trace(p object.Proxy, prevSubobj any) error {
	m.mu.Lock()
	alreadyOpen := m.transActive
	m.mu.Unlock()

	tr := m.CurrentTransaction()
	if alreadyOpen {
		return tr.Trace(p, prevSubobj)
	}

	tr.Begin()
	if err := tr.Trace(p, prevSubobj); err != nil {
		_ = tr.End(context.Background(), err)
		return err
	}
	return tr.End(context.Background(), nil)
}

// --- txn.Host ---

// CurrentTransaction returns the Manager's single, reused Transaction,
// marking it as the currently active one.
func (m *Manager) CurrentTransaction() *txn.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transActive = true
	return m.trans
}

// UnlinkTransaction is called once the outermost Begin/End pair on the
// Manager's transaction completes. It applies any refresh the watcher
// deferred while the transaction was in flight.
func (m *Manager) UnlinkTransaction() {
	m.mu.Lock()
	deferred := m.needsUpdate
	m.needsUpdate = false
	m.transActive = false
	if deferred {
		_, err := m.refreshLocked(context.Background(), nil)
		m.mu.Unlock()
		if err != nil {
			m.log.Warn().Err(err).Msg("deferred refresh failed")
		}
		return
	}
	m.mu.Unlock()
}

// TryCommit serialises the Manager's current root and attempts a
// compare-and-swap write against expected. It is called by
// Transaction.Commit once every traced object's final value has been
// published to the canonical object map.
func (m *Manager) TryCommit(ctx context.Context, expected types.Version) (bool, error) {
	m.mu.Lock()
	root := m.root
	m.mu.Unlock()
	ok, _, err := m.TryWrite(ctx, root, expected)
	return ok, err
}

// --- public API ---

// Transaction opens (or reuses) the Manager's shared transaction and
// returns it for the caller to mutate proxies against. The caller must
// close it with a deferred End.
func (m *Manager) Transaction(ctx context.Context) *txn.Transaction {
	tr := m.CurrentTransaction()
	tr.Begin()
	return tr
}

// Transactional runs fn inside a transaction, retrying on conflict per
// the Manager's default retry/timeout options (set via WithRetries /
// WithTimeout), or unbounded if neither was configured.
func (m *Manager) Transactional(ctx context.Context, fn func(*txn.Transaction) error) error {
	return txn.Run(ctx, m, txn.RunOptions{Retries: m.defaultRetries, Timeout: m.defaultTimeout}, fn)
}

// Read returns the cached root object, refreshing from the backend
// first if nothing has been read yet.
func (m *Manager) Read(ctx context.Context, dfl any) (any, error) {
	m.mu.Lock()
	rootSet := m.rootSet
	root := m.root
	m.mu.Unlock()
	if !rootSet {
		return m.Refresh(ctx, dfl)
	}
	return root, nil
}

// Refresh reads the backend's current version and, if it is newer than
// what this Manager has cached, decodes it and adopts it as the new
// root.
func (m *Manager) Refresh(ctx context.Context, dfl any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx, dfl)
}

// refreshLocked is Refresh's body; the caller must hold m.mu.
func (m *Manager) refreshLocked(ctx context.Context, dfl any) (any, error) {
	version, blob, err := m.be.Read(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 && blob == nil {
		return dfl, nil
	}
	if m.rootSet && version <= m.version {
		return m.root, nil
	}

	m.version = version
	m.needsUpdate = false
	root, err := m.loadLocked(blob)
	if err != nil {
		return nil, err
	}
	m.root = root
	m.rootSet = true
	m.objmap = m.newObjmap
	metrics.CurrentVersion.Set(float64(version))
	metrics.ObjectsLinked.Set(float64(len(m.objmap)))
	metrics.RefreshesTotal.Inc()
	return root, nil
}

// Write unconditionally replaces the backend's stored object with obj,
// then adopts the round-tripped result as this Manager's new root.
func (m *Manager) Write(ctx context.Context, obj any) (types.Version, error) {
	blob, err := codec.Dump(obj)
	if err != nil {
		return 0, err
	}

	version, err := m.be.Write(ctx, blob)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	root, err := m.loadLocked(blob)
	if err != nil {
		return 0, err
	}
	m.commitVersionLocked(version, root)
	return version, nil
}

// TryWrite replaces the backend's stored object with obj only if its
// current version equals expected, adopting the round-tripped result on
// success.
func (m *Manager) TryWrite(ctx context.Context, obj any, expected types.Version) (bool, types.Version, error) {
	blob, err := codec.Dump(obj)
	if err != nil {
		return false, 0, err
	}

	ok, version, err := m.be.TryWrite(ctx, blob, expected)
	if err != nil {
		return false, version, err
	}
	if !ok {
		return false, version, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	root, err := m.loadLocked(blob)
	if err != nil {
		return false, version, err
	}
	m.commitVersionLocked(version, root)
	return true, version, nil
}

// Snapshot returns a deep, detached copy of the current root, taken
// inside a transaction so it reflects one consistent point in time.
// Mutating the result never reaches the backend.
func (m *Manager) Snapshot(ctx context.Context, dfl any) (any, error) {
	tr := m.Transaction(ctx)
	var retErr error
	defer func() { _ = tr.End(ctx, retErr) }()

	m.mu.Lock()
	rootSet := m.rootSet
	root := m.root
	version := m.version
	m.mu.Unlock()

	if !rootSet {
		return dfl, nil
	}

	blob, err := codec.Dump(root)
	if err != nil {
		retErr = err
		return nil, err
	}

	copyRoot, err := codec.Load(blob, &detachedLinker{version: version})
	if err != nil {
		retErr = err
		return nil, err
	}
	return copyRoot, nil
}

// Dump encodes obj into the wire format, independent of this Manager's
// cached state.
func (m *Manager) Dump(obj any) ([]byte, error) {
	return codec.Dump(obj)
}

// Load decodes blob, linking every distributed object it contains into
// this Manager's staging map.
func (m *Manager) Load(blob []byte) (any, error) {
	return codec.Load(blob, m)
}

// loadLocked resets the staging map and decodes blob into it, stamping
// every linked proxy with the Manager's version as it currently stands.
// For Write/TryWrite, that is deliberately still the *previous*
// version: the just-written payload is decoded before m.version is
// bumped, so the freshly linked proxies briefly carry a now-stale
// version and self-heal the next time anything rebases them. The
// caller must hold m.mu.
func (m *Manager) loadLocked(blob []byte) (any, error) {
	m.newObjmap = make(map[types.XID]object.Proxy)
	return codec.Load(blob, lockedLinker{m})
}

// commitVersionLocked adopts root/version/staging-map as canonical, but
// only if version is strictly newer than what's already cached,
// mirroring _update's own `if version > self.version` guard. The caller
// must hold m.mu.
func (m *Manager) commitVersionLocked(version types.Version, root any) {
	if m.rootSet && version <= m.version {
		return
	}
	m.version = version
	m.root = root
	m.rootSet = true
	m.objmap = m.newObjmap
	m.needsUpdate = false
	metrics.CurrentVersion.Set(float64(version))
	metrics.ObjectsLinked.Set(float64(len(m.objmap)))
}

// lockedLinker adapts a Manager already held under its own mutex to
// object.Linker, for use as codec.Load's target during refresh/write/
// try_write's decode step. Only Link is overridden: decode never calls
// the other Linker methods, so they can stay the normal, lock-acquiring
// ones without risking a reentrant deadlock.
type lockedLinker struct {
	*Manager
}

func (l lockedLinker) Link(p object.Proxy) (types.XID, error) {
	return l.Manager.linkLocked(p)
}

// detachedLinker is Snapshot's target: every proxy it links gets a
// locally-unique xid but no live Manager back-reference, so the
// resulting graph behaves like a plain, unshared copy the moment it is
// touched.
type detachedLinker struct {
	version types.Version
	next    types.XID
}

func (d *detachedLinker) CurrentVersion() types.Version { return d.version }

func (d *detachedLinker) Link(p object.Proxy) (types.XID, error) {
	xid := p.XID()
	if xid == 0 {
		d.next++
		xid = d.next
		p.SetXID(xid)
	}
	p.SetVersion(d.version)
	p.SetLinker(d)
	return xid, nil
}

func (d *detachedLinker) Lookup(types.XID) (object.Proxy, bool) { return nil, false }

func (d *detachedLinker) IsDirty(types.XID) bool { return false }

func (d *detachedLinker) Trace(object.Proxy, any) error { return nil }
