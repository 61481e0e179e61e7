// Package file implements a backend.Backend backed by a single BoltDB
// file, for participants that share a filesystem or network volume
// (NFS, a shared directory bind-mounted into several containers) but
// not a process.
//
// It stores exactly one document under one bucket and one key: the
// current version, the id of the participant that wrote it, and the
// payload. bbolt's own file locking and atomic page-swap-on-commit
// stand in for the advisory flock-plus-tempfile-rename dance the
// original filesystem backend performed by hand — the envelope shape
// is kept, the mechanics are not reimplemented.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/dstore/pkg/backend"
	"github.com/cuemby/dstore/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketDocument = []byte("document")

var keyEnvelope = []byte("envelope")

// pollInterval bounds how long TargetWait blocks before re-checking the
// file's version. There is no filesystem change-notification API that
// works uniformly across every shared-volume type (NFS, SMB, bind
// mounts), so polling is the adapter's only option — mirroring the
// original backend's sleep-and-compare loop, minus its filesystem-type
// detection.
const pollInterval = 2 * time.Second

// Backend is a backend.Backend over a BoltDB file.
type Backend struct {
	db          *bolt.DB
	id          types.ParticipantID
	lastVersion types.Version
}

// Open opens (creating if necessary) the BoltDB file at path and
// returns a Backend over it. The parent directory must already exist.
func Open(path string) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("file: data directory %s: %w", dir, err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("file: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocument)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("file: init bucket: %w", err)
	}

	return &Backend{db: db}, nil
}

// Close releases the BoltDB file's lock.
func (b *Backend) Close() error {
	return b.db.Close()
}

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) SetID(id types.ParticipantID) error {
	if !b.id.IsZero() && !id.IsZero() {
		return backend.ErrIDAlreadySet
	}
	b.id = id
	return nil
}

// envelope is the on-disk encoding of one stored document: a version,
// the id of the participant that wrote it, and the payload. It mirrors
// the original filesystem backend's fixed-width header.
type envelope struct {
	version     types.Version
	participant types.ParticipantID
	payload     []byte
}

func encodeEnvelope(e envelope) []byte {
	buf := make([]byte, 8+32+len(e.payload))
	putUint64(buf[0:8], uint64(e.version))
	copy(buf[8:40], e.participant[:])
	copy(buf[40:], e.payload)
	return buf
}

func decodeEnvelope(raw []byte) (envelope, error) {
	if len(raw) < 40 {
		return envelope{}, fmt.Errorf("file: stored envelope too short (%d bytes)", len(raw))
	}
	var e envelope
	e.version = types.Version(getUint64(raw[0:8]))
	copy(e.participant[:], raw[8:40])
	e.payload = append([]byte(nil), raw[40:]...)
	return e, nil
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func (b *Backend) readEnvelope() (envelope, bool, error) {
	var e envelope
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketDocument).Get(keyEnvelope)
		if raw == nil {
			return nil
		}
		found = true
		var err error
		e, err = decodeEnvelope(raw)
		return err
	})
	return e, found, err
}

func (b *Backend) Read(ctx context.Context) (types.Version, []byte, error) {
	e, found, err := b.readEnvelope()
	if err != nil {
		return 0, nil, err
	}
	if !found {
		return 0, nil, nil
	}
	return e.version, e.payload, nil
}

func (b *Backend) Write(ctx context.Context, blob []byte) (types.Version, error) {
	var next types.Version
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketDocument)
		current := bucket.Get(keyEnvelope)
		if current != nil {
			e, err := decodeEnvelope(current)
			if err != nil {
				return err
			}
			next = e.version + 1
		} else {
			next = 1
		}
		return bucket.Put(keyEnvelope, encodeEnvelope(envelope{
			version:     next,
			participant: b.id,
			payload:     blob,
		}))
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (b *Backend) TryWrite(ctx context.Context, blob []byte, expected types.Version) (bool, types.Version, error) {
	var (
		ok   bool
		next types.Version
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketDocument)
		current := bucket.Get(keyEnvelope)
		var currentVersion types.Version
		if current != nil {
			e, err := decodeEnvelope(current)
			if err != nil {
				return err
			}
			currentVersion = e.version
		}
		if currentVersion != expected {
			next = currentVersion
			return nil
		}
		ok = true
		next = currentVersion + 1
		return bucket.Put(keyEnvelope, encodeEnvelope(envelope{
			version:     next,
			participant: b.id,
			payload:     blob,
		}))
	})
	if err != nil {
		return false, 0, err
	}
	return ok, next, nil
}

// TargetWait polls the file for a version written by a different
// participant, sleeping pollInterval between checks. It never blocks
// past ctx's deadline.
func (b *Backend) TargetWait(ctx context.Context) (bool, error) {
	e, found, err := b.readEnvelope()
	if err != nil {
		return false, err
	}
	if found && b.lastVersion == 0 {
		b.lastVersion = e.version
	}

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	e, found, err = b.readEnvelope()
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	changed := e.version != b.lastVersion && e.participant != b.id
	b.lastVersion = e.version
	return changed, nil
}
