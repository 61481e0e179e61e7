package remote

import (
	"context"
	"time"

	"github.com/cuemby/dstore/pkg/backend"
	"github.com/cuemby/dstore/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// waitInterval bounds how long a single TargetWait RPC is allowed to
// block before the client gives up and reports "nothing observed",
// matching the fixed polling interval pkg/backend/file uses and the
// original Ceph backend's own bounded-wait posture around aio_notify.
const waitInterval = 2 * time.Second

// DefaultMaxReadRetries is the default ceiling on Read's retry loop
// against transient RPC failures.
const DefaultMaxReadRetries = 8

// Config configures a Backend.
type Config struct {
	// MaxReadRetries bounds Read's retry loop on transient RPC errors.
	// Zero means DefaultMaxReadRetries.
	MaxReadRetries int
}

// Backend is a backend.Backend reached over gRPC against a Server.
type Backend struct {
	conn           *grpc.ClientConn
	id             types.ParticipantID
	maxReadRetries int
}

// Dial connects to addr and returns a Backend over it. opts are passed
// through to grpc.NewClient (e.g. transport credentials).
func Dial(addr string, cfg Config, opts ...grpc.DialOption) (*Backend, error) {
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	retries := cfg.MaxReadRetries
	if retries <= 0 {
		retries = DefaultMaxReadRetries
	}
	return &Backend{conn: conn, maxReadRetries: retries}, nil
}

// Close tears down the underlying gRPC connection.
func (b *Backend) Close() error { return b.conn.Close() }

var _ backend.Backend = (*Backend)(nil)

func (b *Backend) SetID(id types.ParticipantID) error {
	if !b.id.IsZero() {
		return backend.ErrIDAlreadySet
	}
	b.id = id
	return nil
}

func (b *Backend) invoke(ctx context.Context, method string, in, out any) error {
	return b.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out)
}

// Read retries up to maxReadRetries times on a transient RPC error,
// mirroring the Ceph backend's bounded retry loop against a RADOS
// object that may be mid-write.
func (b *Backend) Read(ctx context.Context) (types.Version, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= b.maxReadRetries; attempt++ {
		resp := new(wrapperspb.BytesValue)
		if err := b.invoke(ctx, "Read", &emptypb.Empty{}, resp); err != nil {
			lastErr = err
			continue
		}
		return unpackRead(resp.GetValue())
	}
	return 0, nil, lastErr
}

func (b *Backend) Write(ctx context.Context, blob []byte) (types.Version, error) {
	req := wrapperspb.Bytes(packWrite(b.id, blob))
	resp := new(wrapperspb.UInt64Value)
	if err := b.invoke(ctx, "Write", req, resp); err != nil {
		return 0, err
	}
	return types.Version(resp.GetValue()), nil
}

func (b *Backend) TryWrite(ctx context.Context, blob []byte, expected types.Version) (bool, types.Version, error) {
	req := wrapperspb.Bytes(packTryWrite(b.id, expected, blob))
	resp := new(wrapperspb.BytesValue)
	if err := b.invoke(ctx, "TryWrite", req, resp); err != nil {
		return false, 0, err
	}
	return unpackTryWriteResult(resp.GetValue())
}

func (b *Backend) TargetWait(ctx context.Context) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, waitInterval)
	defer cancel()

	req := wrapperspb.Bytes(append([]byte(nil), b.id[:]...))
	resp := new(wrapperspb.BoolValue)
	err := b.invoke(waitCtx, "TargetWait", req, resp)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return false, nil
		}
		return false, err
	}
	return resp.GetValue(), nil
}
