// Package autosave decides, per open buffer, whether it is safe to write the
// buffer to disk without user action. It is host-agnostic: the editor is
// reached only through the Host interface, and events arrive through
// Reconciler.Dispatch.
package autosave

// BufferKind distinguishes file-backed buffers from special ones (terminal,
// help, popup and friends).
type BufferKind int

const (
	KindNormal BufferKind = iota
	KindSpecial
)

// HideBehavior is what the editor does with a buffer when its last window
// closes.
type HideBehavior int

const (
	HideNormal HideBehavior = iota
	HideWipe
	HideDelete
)

// Document is a snapshot of a buffer's observable properties at the moment an
// event is handled. The core never caches one; eligibility is always decided
// from a fresh snapshot.
type Document struct {
	// Handle is the editor's stable identifier for the buffer (bufnr in Vim).
	Handle int

	// Path is the buffer's full file name, empty if the buffer is unnamed.
	Path string

	ReadOnly   bool
	Modifiable bool
	Kind       BufferKind
	Hide       HideBehavior

	// ContentType is the buffer's filetype; used to exclude commit-message
	// buffers.
	ContentType string

	// Dirty reports whether the in-memory contents differ from disk.
	Dirty bool
}

// DisplayName is what user-facing messages call the document.
func (d Document) DisplayName() string {
	if d.Path != "" {
		return d.Path
	}
	return "[No Name]"
}

// State is the classification of a document. The zero value means the
// document has never been classified.
type State int

const (
	StateUnset State = iota
	StateReadonly
	StateLocked
	StateAutosave
	StateModified
	StateSaved
	StateDisappeared
)

func (s State) String() string {
	switch s {
	case StateReadonly:
		return "readonly"
	case StateLocked:
		return "locked"
	case StateAutosave:
		return "autosave"
	case StateModified:
		return "modified"
	case StateSaved:
		return "saved"
	case StateDisappeared:
		return "disappeared"
	default:
		return ""
	}
}

// Prior is an explicit optional over State: the zero value means the document
// has never been classified. It is the only piece of remembered state the
// classifier consults, and only to tell a brand-new file apart from one whose
// backing file vanished.
type Prior struct {
	state State
}

// Classified returns a Prior recording that the document was previously
// classified as s.
func Classified(s State) Prior {
	return Prior{state: s}
}

// IsClassified reports whether the document has been classified before.
func (p Prior) IsClassified() bool {
	return p.state != StateUnset
}

// State returns the previously classified state, StateUnset if none.
func (p Prior) State() State {
	return p.state
}
