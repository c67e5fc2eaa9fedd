// Package watch reacts to external modification of a file-backed document.
//
// The watcher observes the file's directory (editors and atomic writers
// replace files by rename), debounces bursts of events and then compares
// the file's change tag with the one the document holds. Changes the
// document made itself are ignored. A clean document is reloaded; a dirty
// one enters conflict mode.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/store"
)

// Document is the part of *document.Controller the watcher drives.
type Document interface {
	IsDirty() bool
	Saving() bool
	Snapshot() (document.Snapshot, bool)
	Load(ctx context.Context, opts document.LoadOptions) error
	EnterConflictMode(ctx context.Context) error
}

// Statter reports the current snapshot of a resource. *filestore.Store
// implements it.
type Statter interface {
	Stat(resource string) (store.Snapshot, error)
}

// Outcome is what the watcher did about one external change.
type Outcome int

const (
	Reloaded Outcome = iota
	Conflicted
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Reloaded:
		return "reloaded"
	case Conflicted:
		return "conflicted"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

type Options struct {
	// Debounce collapses bursts of events. Default: 100ms.
	Debounce time.Duration

	// OnChange is called after the watcher handled an external change.
	OnChange func(Outcome)

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{Debounce: 100 * time.Millisecond}
}

type Watcher struct {
	path     string
	resource string
	doc      Document
	stat     Statter
	opts     Options
	log      *slog.Logger
	fsw      *fsnotify.Watcher

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New watches path, the file behind resource in st.
func New(path, resource string, doc Document, st Statter, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     abs,
		resource: resource,
		doc:      doc,
		stat:     st,
		opts:     opts,
		log:      opts.Logger.With(slog.String("watch", abs)),
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Handling stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for an in-progress reaction to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.opts.Debounce)
		} else {
			timer.Reset(w.opts.Debounce)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			arm()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.String("error", err.Error()))
		case <-timerC:
			timerC = nil
			if !w.react(ctx) {
				arm()
			}
		}
	}
}

// react handles one debounced change. It returns false when the document
// is mid-save and the change should be looked at again later.
func (w *Watcher) react(ctx context.Context) bool {
	if w.doc.Saving() {
		return false
	}

	held, ok := w.doc.Snapshot()
	cur, err := w.stat.Stat(w.resource)
	switch {
	case store.IsNotFound(err):
		w.log.Info("watched file removed")
		w.notify(Removed)
		return true
	case err != nil:
		w.log.Warn("stat failed", slog.String("error", err.Error()))
		return true
	case ok && cur.ETag == held.ETag:
		return true
	}

	if w.doc.IsDirty() {
		w.log.Info("external change while dirty")
		if err := w.doc.EnterConflictMode(ctx); err != nil {
			w.log.Warn("enter conflict mode failed", slog.String("error", err.Error()))
		}
		w.notify(Conflicted)
		return true
	}

	err = w.doc.Load(ctx, document.LoadOptions{})
	if err != nil && !errors.Is(err, context.Canceled) {
		w.log.Warn("reload failed", slog.String("error", err.Error()))
		return true
	}
	w.log.Debug("reloaded after external change")
	w.notify(Reloaded)
	return true
}

func (w *Watcher) notify(o Outcome) {
	if w.opts.OnChange != nil {
		w.opts.OnChange(o)
	}
}
