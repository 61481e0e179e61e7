package main

import (
	"fmt"
	"io"

	"github.com/cuemby/dstore/pkg/backend"
	"github.com/cuemby/dstore/pkg/backend/file"
	"github.com/cuemby/dstore/pkg/backend/memory"
	"github.com/cuemby/dstore/pkg/backend/remote"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// openBackend constructs the backend.Backend named by cfg.Backend. The
// returned closer releases any resources it holds (a file handle, a
// gRPC connection); callers should defer it.
func openBackend(cfg Config) (backend.Backend, io.Closer, error) {
	switch cfg.Backend {
	case "file":
		if cfg.File.Path == "" {
			return nil, nil, fmt.Errorf("dstore: file backend requires backend.file.path in config")
		}
		be, err := file.Open(cfg.File.Path)
		if err != nil {
			return nil, nil, err
		}
		return be, be, nil

	case "remote":
		if cfg.Remote.Addr == "" {
			return nil, nil, fmt.Errorf("dstore: remote backend requires backend.remote.addr in config")
		}
		be, err := remote.Dial(cfg.Remote.Addr,
			remote.Config{MaxReadRetries: cfg.Remote.MaxReadRetries},
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, err
		}
		return be, be, nil

	case "memory", "":
		store := memory.NewStore()
		store.Start()
		be := memory.NewBackend(store)
		return be, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("dstore: unknown backend kind %q", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
