package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AutosaveMode selects when dirty content is persisted without a Save call.
type AutosaveMode int

const (
	AutosaveOff AutosaveMode = iota
	AutosaveAfterDelay
)

func (m AutosaveMode) String() string {
	switch m {
	case AutosaveOff:
		return "off"
	case AutosaveAfterDelay:
		return "after_delay"
	default:
		return "unknown"
	}
}

const DefaultAutosaveDelay = time.Second

type Options struct {
	// Resource identifies the document in the store.
	Resource string

	Autosave      AutosaveMode
	AutosaveDelay time.Duration // default: DefaultAutosaveDelay

	// Encoding is the preferred encoding. Empty adopts what the store reports.
	Encoding string

	Participant  SaveParticipant
	ErrorHandler ErrorHandler // default: DefaultErrorHandler(Notify)

	// Notify surfaces user-facing messages from the default error handler.
	// Default: log at warn level.
	Notify func(msg string)

	Telemetry Telemetry
	Clock     Clock
	Logger    *slog.Logger

	// Tracing enables OpenTelemetry spans around loads and saves.
	Tracing bool
}

func DefaultOptions() Options {
	return Options{
		Autosave:      AutosaveOff,
		AutosaveDelay: DefaultAutosaveDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.AutosaveDelay <= 0 {
		o.AutosaveDelay = DefaultAutosaveDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Notify == nil {
		logger := o.Logger
		o.Notify = func(msg string) { logger.Warn(msg) }
	}
	if o.ErrorHandler == nil {
		o.ErrorHandler = DefaultErrorHandler(o.Notify)
	}
	if o.Telemetry == nil {
		o.Telemetry = nopTelemetry{}
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	return o
}

// DefaultErrorHandler turns a failure into a single user-facing message.
func DefaultErrorHandler(notify func(msg string)) ErrorHandler {
	return ErrorHandlerFunc(func(_ context.Context, c *Controller, err error) {
		switch {
		case IsConflict(err):
			notify(fmt.Sprintf("Failed to save %q: the content in the store is newer. Compare or overwrite.", c.Resource()))
		case IsNotFound(err):
			notify(fmt.Sprintf("Unable to open %q: not found.", c.Resource()))
		default:
			notify(fmt.Sprintf("Failed to save %q: %v", c.Resource(), err))
		}
	})
}
