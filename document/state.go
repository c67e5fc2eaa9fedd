package document

// State is the lifecycle state reported by Controller.State.
type State int

const (
	StateSaved State = iota
	StateDirty
	StatePendingSave
	StateConflict
	StateError
)

func (s State) String() string {
	switch s {
	case StateSaved:
		return "saved"
	case StateDirty:
		return "dirty"
	case StatePendingSave:
		return "pending_save"
	case StateConflict:
		return "conflict"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventKind identifies a lifecycle transition.
type EventKind int

const (
	EventDirty EventKind = iota
	EventSaved
	EventReverted
	EventSaveError
	EventEncodingChanged
	EventConflict
)

func (k EventKind) String() string {
	switch k {
	case EventDirty:
		return "dirty"
	case EventSaved:
		return "saved"
	case EventReverted:
		return "reverted"
	case EventSaveError:
		return "save_error"
	case EventEncodingChanged:
		return "encoding_changed"
	case EventConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers in emission order.
type Event struct {
	Kind    EventKind
	Version uint64

	// Auto is set on EventSaved and EventSaveError for autosaves.
	Auto bool

	// Encoding is set on EventEncodingChanged.
	Encoding string

	// Err is set on EventSaveError.
	Err error
}
