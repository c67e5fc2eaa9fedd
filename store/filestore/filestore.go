// Package filestore stores documents as files on the local filesystem.
//
// Change tags hash the file's modification time and size, so any external
// write is noticed on the next Read or Write. Writes go through a temp file
// in the target directory followed by a rename.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"

	"github.com/iw2rmb/quire/internal/textenc"
	"github.com/iw2rmb/quire/store"
)

type Options struct {
	// Root resolves relative resources. Empty uses resources as given.
	Root string

	// Perm applies to newly created files. Default: 0o644.
	Perm fs.FileMode

	Logger *slog.Logger
}

type Store struct {
	root   string
	perm   fs.FileMode
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(opts Options) *Store {
	if opts.Perm == 0 {
		opts.Perm = 0o644
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{root: opts.Root, perm: opts.Perm, logger: opts.Logger}
}

// Path returns the filesystem path of resource.
func (s *Store) Path(resource string) string {
	if s.root == "" || filepath.IsAbs(resource) {
		return filepath.Clean(resource)
	}
	return filepath.Join(s.root, resource)
}

// Stat returns the current snapshot of resource without reading it.
func (s *Store) Stat(resource string) (store.Snapshot, error) {
	info, err := os.Stat(s.Path(resource))
	if err != nil {
		return store.Snapshot{}, store.Wrap("stat", resource, mapErr(err))
	}
	return snapshot(resource, info, ""), nil
}

func (s *Store) Read(ctx context.Context, resource string, opts store.ReadOptions) (store.ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	path := s.Path(resource)

	info, err := os.Stat(path)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, mapErr(err))
	}
	if info.IsDir() {
		return store.ReadResult{}, store.Wrap("read", resource, store.ErrIsDirectory)
	}
	if opts.ETag != "" && opts.ETag == etag(info) {
		return store.ReadResult{}, store.Wrap("read", resource, store.ErrNotModified)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, mapErr(err))
	}
	// Stat again: the snapshot must describe the bytes we return.
	if info, err = os.Stat(path); err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, mapErr(err))
	}

	text, enc, err := textenc.Decode(data, opts.Encoding)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	return store.ReadResult{
		Content:  text,
		Encoding: enc,
		Snapshot: snapshot(resource, info, mimetype.Detect(data).String()),
	}, nil
}

func (s *Store) Write(ctx context.Context, resource, content string, opts store.WriteOptions) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}
	path := s.Path(resource)
	perm := s.perm

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return store.Snapshot{}, store.Wrap("write", resource, store.ErrIsDirectory)
		}
		current := snapshot(resource, info, "")
		if err := store.CheckModifiedSince(current, opts); err != nil {
			s.logger.Debug("stale write refused",
				slog.String("path", path),
				slog.String("held_etag", opts.ETag),
				slog.String("etag", current.ETag),
			)
			return store.Snapshot{}, store.Wrap("write", resource, err)
		}
		perm = info.Mode().Perm()
		if perm&0o200 == 0 {
			if !opts.OverwriteReadonly {
				return store.Snapshot{}, store.Wrap("write", resource, store.ErrReadonly)
			}
			perm |= 0o200
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}

	data, err := textenc.Encode(content, opts.Encoding)
	if err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}
	if err := atomicWriteFile(path, data, perm); err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}

	info, err = os.Stat(path)
	if err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}
	return snapshot(resource, info, mimetype.Detect(data).String()), nil
}

// atomicWriteFile writes through a temp file in the same directory so
// readers never observe a partial file.
func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quire-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return nil
}

func etag(info fs.FileInfo) string {
	h := xxhash.New()
	h.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
	h.WriteString(":")
	h.WriteString(strconv.FormatInt(info.Size(), 10))
	return strconv.FormatUint(h.Sum64(), 16)
}

func snapshot(resource string, info fs.FileInfo, kind string) store.Snapshot {
	return store.Snapshot{
		Resource:    resource,
		ModTime:     info.ModTime(),
		ETag:        etag(info),
		ContentKind: kind,
		IsDir:       info.IsDir(),
		Size:        info.Size(),
	}
}

func mapErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return store.ErrNotFound
	}
	return err
}
