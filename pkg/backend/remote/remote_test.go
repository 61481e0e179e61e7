package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cuemby/dstore/pkg/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func dialTestBackend(t *testing.T) (*Server, *Backend) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer()
	srv := NewServer()
	RegisterServer(grpcServer, srv)

	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() {
		grpcServer.Stop()
		srv.Stop()
	})

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	be, err := Dial("passthrough:///bufnet", Config{},
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = be.Close() })

	require.NoError(t, be.SetID(types.NewParticipantID()))
	return srv, be
}

func TestRemoteBackendReadEmpty(t *testing.T) {
	_, be := dialTestBackend(t)
	ctx := context.Background()

	version, blob, err := be.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, types.Version(0), version)
	require.Nil(t, blob)
}

func TestRemoteBackendWriteThenRead(t *testing.T) {
	_, be := dialTestBackend(t)
	ctx := context.Background()

	version, err := be.Write(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, types.Version(1), version)

	gotVersion, blob, err := be.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, version, gotVersion)
	require.Equal(t, []byte("hello"), blob)
}

func TestRemoteBackendTryWriteConflict(t *testing.T) {
	_, be := dialTestBackend(t)
	ctx := context.Background()

	_, err := be.Write(ctx, []byte("v1"))
	require.NoError(t, err)

	ok, version, err := be.TryWrite(ctx, []byte("v2-wrong-base"), 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, types.Version(1), version)

	ok, version, err = be.TryWrite(ctx, []byte("v2"), 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.Version(2), version)
}

func TestRemoteBackendSetIDRejectsSecondCall(t *testing.T) {
	_, be := dialTestBackend(t)
	require.Error(t, be.SetID(types.NewParticipantID()))
}

func TestRemoteBackendTargetWaitObservesForeignWrite(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer()
	sharedSrv := NewServer()
	RegisterServer(grpcServer, sharedSrv)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() {
		grpcServer.Stop()
		sharedSrv.Stop()
	})
	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }

	a, err := Dial("passthrough:///bufnet", Config{},
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.SetID(types.NewParticipantID()))

	b, err := Dial("passthrough:///bufnet", Config{},
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.SetID(types.NewParticipantID()))

	resultCh := make(chan bool, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		changed, werr := b.TargetWait(ctx)
		require.NoError(t, werr)
		resultCh <- changed
	}()

	time.Sleep(50 * time.Millisecond)
	_, err = a.Write(context.Background(), []byte("from a"))
	require.NoError(t, err)

	select {
	case changed := <-resultCh:
		require.True(t, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("target wait never observed the foreign write")
	}
}
