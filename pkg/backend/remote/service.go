// Package remote implements a backend.Backend reached over gRPC: a
// Server holds the shared document and fans out change notifications,
// and a Backend dials it as a client. It is the over-the-wire
// counterpart to pkg/backend/memory's in-process one, for participants
// that run as separate processes (possibly on separate hosts) rather
// than sharing an address space.
//
// There is no .proto file behind this package: the wire messages are
// plain google.golang.org/protobuf well-known types (BytesValue,
// UInt64Value, BoolValue, Empty), and the gRPC service itself is
// declared by hand as a grpc.ServiceDesc, since no protoc toolchain is
// available here. A composite payload (a write's participant id plus
// its blob, say) is packed into a single BytesValue by the encode/
// decode helpers below rather than by defining a new message type.
package remote

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cuemby/dstore/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// serviceName is the gRPC service name this package registers under.
const serviceName = "dstore.backend.RemoteBackend"

// Server is the interface a gRPC server registers to serve this
// package's RPCs. *Server (below) is the production implementation.
type remoteBackendServer interface {
	Read(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Write(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error)
	TryWrite(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	TargetWait(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error)
}

// RegisterServer registers srv against grpcServer under this package's
// hand-declared service descriptor.
func RegisterServer(grpcServer *grpc.Server, srv *Server) {
	grpcServer.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*remoteBackendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Read", Handler: readHandler},
		{MethodName: "Write", Handler: writeHandler},
		{MethodName: "TryWrite", Handler: tryWriteHandler},
		{MethodName: "TargetWait", Handler: targetWaitHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/backend/remote/service.go",
}

func readHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(remoteBackendServer).Read(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Read"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(remoteBackendServer).Read(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func writeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(remoteBackendServer).Write(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Write"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(remoteBackendServer).Write(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func tryWriteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(remoteBackendServer).TryWrite(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/TryWrite"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(remoteBackendServer).TryWrite(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func targetWaitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(remoteBackendServer).TargetWait(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/TargetWait"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(remoteBackendServer).TargetWait(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// --- composite payload packing ---
//
// participantSize is types.ParticipantID's fixed width (32 bytes).

const participantSize = 32

// packWrite lays out a Write request as participant || blob.
func packWrite(id types.ParticipantID, blob []byte) []byte {
	out := make([]byte, participantSize+len(blob))
	copy(out, id[:])
	copy(out[participantSize:], blob)
	return out
}

func unpackWrite(raw []byte) (types.ParticipantID, []byte, error) {
	if len(raw) < participantSize {
		return types.ParticipantID{}, nil, fmt.Errorf("remote: write payload too short")
	}
	var id types.ParticipantID
	copy(id[:], raw[:participantSize])
	return id, raw[participantSize:], nil
}

// packTryWrite lays out a TryWrite request as participant || expected(8) || blob.
func packTryWrite(id types.ParticipantID, expected types.Version, blob []byte) []byte {
	out := make([]byte, participantSize+8+len(blob))
	copy(out, id[:])
	binary.LittleEndian.PutUint64(out[participantSize:], uint64(expected))
	copy(out[participantSize+8:], blob)
	return out
}

func unpackTryWrite(raw []byte) (types.ParticipantID, types.Version, []byte, error) {
	if len(raw) < participantSize+8 {
		return types.ParticipantID{}, 0, nil, fmt.Errorf("remote: try_write payload too short")
	}
	var id types.ParticipantID
	copy(id[:], raw[:participantSize])
	expected := types.Version(binary.LittleEndian.Uint64(raw[participantSize:]))
	return id, expected, raw[participantSize+8:], nil
}

// packTryWriteResult lays out a TryWrite response as ok(1) || version(8).
func packTryWriteResult(ok bool, version types.Version) []byte {
	out := make([]byte, 9)
	if ok {
		out[0] = 1
	}
	binary.LittleEndian.PutUint64(out[1:], uint64(version))
	return out
}

func unpackTryWriteResult(raw []byte) (bool, types.Version, error) {
	if len(raw) < 9 {
		return false, 0, fmt.Errorf("remote: try_write result too short")
	}
	return raw[0] != 0, types.Version(binary.LittleEndian.Uint64(raw[1:])), nil
}

// packRead lays out a Read response as version(8) || blob.
func packRead(version types.Version, blob []byte) []byte {
	out := make([]byte, 8+len(blob))
	binary.LittleEndian.PutUint64(out, uint64(version))
	copy(out[8:], blob)
	return out
}

func unpackRead(raw []byte) (types.Version, []byte, error) {
	if len(raw) < 8 {
		return 0, nil, fmt.Errorf("remote: read result too short")
	}
	version := types.Version(binary.LittleEndian.Uint64(raw))
	if version == 0 {
		return 0, nil, nil
	}
	return version, raw[8:], nil
}
