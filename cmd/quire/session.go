package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iw2rmb/quire/buffer"
	"github.com/iw2rmb/quire/config"
	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/editor"
	"github.com/iw2rmb/quire/telemetry"
	"github.com/iw2rmb/quire/watch"
)

type sessionOptions struct {
	Logger *slog.Logger

	// Notify receives user-facing messages from the controller and watcher.
	Notify func(msg string)
}

// session ties one resource to a buffer, a controller and the configured
// store, plus the optional watcher and metrics endpoint.
type session struct {
	cfg      config.Config
	resource string
	log      *slog.Logger
	notify   func(string)

	backend backend
	buf     *buffer.Buffer
	ctrl    *document.Controller

	watcher *watch.Watcher
	metrics *http.Server
}

func openSession(ctx context.Context, cfg config.Config, resource string, opts sessionOptions) (*session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(msg string) { logger.Warn(msg) }
	}

	be, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:      cfg,
		resource: resource,
		log:      logger,
		notify:   notify,
		backend:  be,
		buf:      buffer.New("", buffer.Options{HistoryLimit: editor.DefaultHistoryLimit}),
	}

	docOpts := cfg.DocumentOptions(resource)
	docOpts.Logger = logger
	docOpts.Notify = notify
	docOpts.ErrorHandler = newDocumentErrors(notify)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		docOpts.Telemetry = telemetry.New(reg, telemetry.DefaultConfig())
		s.serveMetrics(reg)
	}

	ctrl, err := document.New(s.buf, be.Store, docOpts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// newDocumentErrors keeps a missing resource quiet until it was first
// resolved: opening a new document is not an error.
func newDocumentErrors(notify func(string)) document.ErrorHandler {
	base := document.DefaultErrorHandler(notify)
	return document.ErrorHandlerFunc(func(ctx context.Context, c *document.Controller, err error) {
		if document.IsNotFound(err) && !c.IsResolved() {
			return
		}
		base.HandleError(ctx, c, err)
	})
}

func (s *session) serveMetrics(reg *prometheus.Registry) {
	s.metrics = &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           telemetry.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", "addr", s.cfg.Metrics.Addr, "error", err)
		}
	}()
}

// Open loads the document and starts watching it. A missing resource opens
// as an empty document that the first save creates.
func (s *session) Open(ctx context.Context) error {
	if err := s.ctrl.Load(ctx, document.LoadOptions{}); err != nil && !document.IsNotFound(err) {
		return err
	}
	if !s.cfg.Watch.Enabled || s.backend.files == nil {
		return nil
	}

	w, err := watch.New(s.backend.files.Path(s.resource), s.resource, s.ctrl, s.backend.files, watch.Options{
		Debounce: s.cfg.Watch.Debounce,
		OnChange: s.watchNotice,
		Logger:   s.log,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

func (s *session) watchNotice(o watch.Outcome) {
	switch o {
	case watch.Reloaded:
		s.notify("Reloaded: the file changed on disk.")
	case watch.Conflicted:
		s.notify("The file changed on disk. ctrl+o overwrites it, ctrl+r discards your edits.")
	case watch.Removed:
		s.notify("The file was removed on disk. Saving recreates it.")
	}
}

// Close disposes the controller, waits for a save in flight and releases
// the store.
func (s *session) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.ctrl != nil {
		s.ctrl.Dispose()
		select {
		case <-s.ctrl.Done():
		case <-time.After(30 * time.Second):
			s.log.Warn("closing with a save still in flight", "resource", s.resource)
		}
	}
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.metrics.Shutdown(ctx)
	}
	if err := s.backend.close(); err != nil {
		s.log.Warn("failed to close the store", "error", err)
	}
}
