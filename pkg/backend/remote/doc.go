/*
Package remote implements backend.Backend over gRPC.

A Server holds the shared document (version + blob) and a
notification broker, exactly like pkg/backend/memory's Store but
reachable from other processes. Any number of Backend clients can Dial
the same Server; each carries its own participant id, supplied once via
SetID and attached to every Write/TryWrite/TargetWait call so the
server can filter a client's own writes out of its TargetWait replies.

This package has no corresponding .proto file: its RPCs are declared by
hand as a grpc.ServiceDesc and exchange the protobuf well-known wrapper
types (BytesValue, UInt64Value, BoolValue, Empty) rather than
generated message types. A composite payload — a write's participant
id and blob together, say — is packed into one BytesValue by this
package's own encode/decode helpers (service.go) instead of widening
the wire format with a new message type.

Read retries on transient RPC failure up to Config.MaxReadRetries
times, in the spirit of the Ceph backend this package's CAS semantics
are grounded on, which retries its own read loop against an object that
may be mid-write.
*/
package remote
