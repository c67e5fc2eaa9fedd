// Package gcsstore keeps documents as objects in a Google Cloud Storage
// bucket. The object generation is the change tag; writes carry a
// generation-match precondition so a concurrent upload makes the save fail
// with store.ErrConflict instead of overwriting it.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/iw2rmb/quire"
	"github.com/iw2rmb/quire/internal/textenc"
	"github.com/iw2rmb/quire/store"
)

// metaReadonly marks an object write protected.
const metaReadonly = "quire-readonly"

type Options struct {
	Bucket string

	// Prefix is prepended to every resource name.
	Prefix string

	Logger *slog.Logger
}

type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// NewClient creates a storage client. An empty credentials path uses the
// application default credentials.
func NewClient(ctx context.Context, credentialsPath string) (*storage.Client, error) {
	opts := []option.ClientOption{option.WithUserAgent(quire.UserAgent())}
	if credentialsPath != "" {
		if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsPath)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return client, nil
}

func New(client *storage.Client, opts Options) (*Store, error) {
	if client == nil {
		return nil, errors.New("gcsstore: nil client")
	}
	if opts.Bucket == "" {
		return nil, errors.New("gcsstore: bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		prefix: opts.Prefix,
		logger: opts.Logger,
	}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) object(resource string) *storage.ObjectHandle {
	return s.bucket.Object(s.prefix + resource)
}

func (s *Store) Read(ctx context.Context, resource string, opts store.ReadOptions) (store.ReadResult, error) {
	obj := s.object(resource)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, mapErr(err))
	}
	if opts.ETag != "" && opts.ETag == etag(attrs.Generation) {
		return store.ReadResult{}, store.Wrap("read", resource, store.ErrNotModified)
	}

	r, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, mapErr(err))
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}

	text, enc, err := textenc.Decode(data, opts.Encoding)
	if err != nil {
		return store.ReadResult{}, store.Wrap("read", resource, err)
	}
	return store.ReadResult{Content: text, Encoding: enc, Snapshot: snapshot(resource, attrs)}, nil
}

func (s *Store) Write(ctx context.Context, resource, content string, opts store.WriteOptions) (store.Snapshot, error) {
	data, err := textenc.Encode(content, opts.Encoding)
	if err != nil {
		return store.Snapshot{}, store.Wrap("write", resource, err)
	}

	obj := s.object(resource)
	attrs, err := obj.Attrs(ctx)
	switch {
	case err == nil:
		if err := store.CheckModifiedSince(snapshot(resource, attrs), opts); err != nil {
			return store.Snapshot{}, store.Wrap("write", resource, err)
		}
		if attrs.Metadata[metaReadonly] == "true" && !opts.OverwriteReadonly {
			return store.Snapshot{}, store.Wrap("write", resource, store.ErrReadonly)
		}
		// Anything uploaded after the check loses the race to us or fails ours.
		obj = obj.If(storage.Conditions{GenerationMatch: attrs.Generation})
	case errors.Is(err, storage.ErrObjectNotExist):
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	default:
		return store.Snapshot{}, store.Wrap("write", resource, mapErr(err))
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "text/plain"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return store.Snapshot{}, store.Wrap("write", resource, mapErr(err))
	}
	if err := w.Close(); err != nil {
		if store.IsConflict(mapErr(err)) {
			s.logger.Debug("generation precondition failed", slog.String("resource", resource))
		}
		return store.Snapshot{}, store.Wrap("write", resource, mapErr(err))
	}
	return snapshot(resource, w.Attrs()), nil
}

func etag(generation int64) string { return strconv.FormatInt(generation, 10) }

func snapshot(resource string, attrs *storage.ObjectAttrs) store.Snapshot {
	if attrs == nil {
		return store.Snapshot{Resource: resource}
	}
	return store.Snapshot{
		Resource:    resource,
		ModTime:     attrs.Updated,
		ETag:        etag(attrs.Generation),
		ContentKind: attrs.ContentType,
		Size:        attrs.Size,
	}
}

func mapErr(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return store.ErrNotFound
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotModified:
			return store.ErrNotModified
		case http.StatusPreconditionFailed:
			return store.ErrConflict
		case http.StatusNotFound:
			return store.ErrNotFound
		}
	}
	return err
}
