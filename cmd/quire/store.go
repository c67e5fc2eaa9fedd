package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iw2rmb/quire/config"
	"github.com/iw2rmb/quire/store"
	"github.com/iw2rmb/quire/store/badgerstore"
	"github.com/iw2rmb/quire/store/filestore"
	"github.com/iw2rmb/quire/store/gcsstore"
	"github.com/iw2rmb/quire/store/memstore"
)

// backend is an opened store plus what the session needs to watch and
// release it.
type backend struct {
	store.Store

	// files is set for the file store; only it can be watched.
	files *filestore.Store
	close func() error
}

func openStore(ctx context.Context, c config.StoreConfig, logger *slog.Logger) (backend, error) {
	noop := func() error { return nil }
	switch c.Kind {
	case config.StoreFile, "":
		fs := filestore.New(filestore.Options{Root: c.Root, Logger: logger})
		return backend{Store: fs, files: fs, close: noop}, nil

	case config.StoreBadger:
		bc := badgerstore.DefaultConfig()
		bc.Path = c.Path
		bc.Logger = logger
		bs, err := badgerstore.Open(bc)
		if err != nil {
			return backend{}, err
		}
		return backend{Store: bs, close: bs.Close}, nil

	case config.StoreGCS:
		client, err := gcsstore.NewClient(ctx, c.Credentials)
		if err != nil {
			return backend{}, err
		}
		gs, err := gcsstore.New(client, gcsstore.Options{Bucket: c.Bucket, Prefix: c.Prefix, Logger: logger})
		if err != nil {
			_ = client.Close()
			return backend{}, err
		}
		return backend{Store: gs, close: gs.Close}, nil

	case config.StoreMemory:
		return backend{Store: memstore.New(memstore.Options{}), close: noop}, nil

	default:
		return backend{}, fmt.Errorf("unknown store kind %q", c.Kind)
	}
}
