// Package badgerstore keeps documents in a BadgerDB database.
//
// Each resource is two keys written in one transaction: the encoded bytes
// and a JSON metadata record with the modification time and change tag.
// Conflict checks run inside the write transaction, so a concurrent writer
// that commits first makes the second commit fail with store.ErrConflict.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/iw2rmb/quire/internal/textenc"
	"github.com/iw2rmb/quire/store"
)

type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	InMemory   bool
	SyncWrites bool

	Logger *slog.Logger

	// Now supplies modification times. Default: time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{SyncWrites: true}
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

type meta struct {
	ModTime  int64  `json:"mod_time"`
	ETag     string `json:"etag"`
	Readonly bool   `json:"readonly,omitempty"`
}

// badgerLogger routes badger's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, logger: logger, now: now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func dataKey(resource string) []byte { return []byte("doc/data/" + resource) }

func metaKey(resource string) []byte { return []byte("doc/meta/" + resource) }

func (s *Store) Read(ctx context.Context, resource string, opts store.ReadOptions) (store.ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}

	var (
		m    meta
		data []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if m, err = getMeta(txn, resource); err != nil {
			return err
		}
		if opts.ETag != "" && opts.ETag == m.ETag {
			return store.ErrNotModified
		}
		item, err := txn.Get(dataKey(resource))
		if err != nil {
			return mapErr(err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}

	text, enc, err := textenc.Decode(data, opts.Encoding)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	return store.ReadResult{Content: text, Encoding: enc, Snapshot: m.snapshot(resource, len(data))}, nil
}

func (s *Store) Write(ctx context.Context, resource, content string, opts store.WriteOptions) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}
	data, err := textenc.Encode(content, opts.Encoding)
	if err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}

	var next meta
	err = s.db.Update(func(txn *badger.Txn) error {
		cur, err := getMeta(txn, resource)
		switch {
		case err == nil:
			if err := store.CheckModifiedSince(cur.snapshot(resource, 0), opts); err != nil {
				return err
			}
			if cur.Readonly && !opts.OverwriteReadonly {
				return store.ErrReadonly
			}
		case errors.Is(err, store.ErrNotFound):
		default:
			return err
		}

		modTime := s.now().UnixNano()
		if modTime <= cur.ModTime {
			modTime = cur.ModTime + 1
		}
		next = meta{ModTime: modTime, ETag: uuid.NewString()}
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		if err := txn.Set(metaKey(resource), raw); err != nil {
			return err
		}
		return txn.Set(dataKey(resource), data)
	})
	if errors.Is(err, badger.ErrConflict) {
		s.logger.Debug("concurrent write lost", slog.String("resource", resource))
		err = store.ErrConflict
	}
	if err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}
	return next.snapshot(resource, len(data)), nil
}

// SetReadonly marks resource write protected.
func (s *Store) SetReadonly(resource string, readonly bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		m, err := getMeta(txn, resource)
		if err != nil {
			return err
		}
		m.Readonly = readonly
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return txn.Set(metaKey(resource), raw)
	})
}

// Delete removes resource.
func (s *Store) Delete(resource string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(resource)); err != nil {
			return err
		}
		return txn.Delete(dataKey(resource))
	})
}

func getMeta(txn *badger.Txn, resource string) (meta, error) {
	item, err := txn.Get(metaKey(resource))
	if err != nil {
		return meta{}, mapErr(err)
	}
	var m meta
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	return m, err
}

func (m meta) snapshot(resource string, size int) store.Snapshot {
	return store.Snapshot{
		Resource:    resource,
		ModTime:     time.Unix(0, m.ModTime),
		ETag:        m.ETag,
		ContentKind: "text/plain",
		Size:        int64(size),
	}
}

func mapErr(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	return err
}
