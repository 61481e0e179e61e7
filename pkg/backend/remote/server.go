package remote

import (
	"context"
	"sync"

	"github.com/cuemby/dstore/pkg/events"
	"github.com/cuemby/dstore/pkg/types"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server holds the shared document every remote Backend client reads
// from and writes to, and fans out a notification on every accepted
// write so TargetWait callers can wake. One Server backs any number of
// gRPC client connections; register it with RegisterServer.
type Server struct {
	mu      sync.Mutex
	version types.Version
	blob    []byte
	broker  *events.Broker
}

// NewServer creates an empty Server and starts its notification broker.
func NewServer() *Server {
	s := &Server{broker: events.NewBroker()}
	s.broker.Start()
	return s
}

// Stop halts the server's notification broker.
func (s *Server) Stop() { s.broker.Stop() }

func (s *Server) Read(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wrapperspb.Bytes(packRead(s.version, s.blob)), nil
}

func (s *Server) Write(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error) {
	id, blob, err := unpackWrite(req.GetValue())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.blob = append([]byte(nil), blob...)
	s.version++
	version := s.version
	s.mu.Unlock()
	s.broker.Publish(events.Notification{Version: version, Notifier: id})
	return wrapperspb.UInt64(uint64(version)), nil
}

func (s *Server) TryWrite(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	id, expected, blob, err := unpackTryWrite(req.GetValue())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.version != expected {
		current := s.version
		s.mu.Unlock()
		return wrapperspb.Bytes(packTryWriteResult(false, current)), nil
	}
	s.blob = append([]byte(nil), blob...)
	s.version++
	version := s.version
	s.mu.Unlock()

	s.broker.Publish(events.Notification{Version: version, Notifier: id})
	return wrapperspb.Bytes(packTryWriteResult(true, version)), nil
}

// TargetWait blocks on a short-lived subscription to the server's
// broker, filtering out notifications raised by the caller's own
// participant id, exactly like pkg/backend/memory's in-process
// equivalent.
func (s *Server) TargetWait(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	var id types.ParticipantID
	copy(id[:], req.GetValue())

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	s.mu.Lock()
	observed := s.version
	s.mu.Unlock()

	select {
	case n, ok := <-sub:
		if !ok {
			return wrapperspb.Bool(false), nil
		}
		return wrapperspb.Bool(n.Version != observed && n.Notifier != id), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ remoteBackendServer = (*Server)(nil)
