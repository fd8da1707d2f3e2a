package autosave

import (
	"fmt"
	"sort"
	"strings"
)

// EventKind names the editor lifecycle events the reconciler reacts to.
type EventKind int

const (
	EventInsertLeave EventKind = iota + 1
	EventTextChanged
	EventTextChangedInsert
	EventIdleTimeout
	EventFocusLost
	EventFocusGained
	EventBufferEntered
	EventBufferDeleted
)

// Event is a single editor notification. Handle identifies the affected
// buffer; it is ignored for EventFocusGained, which sweeps every loaded
// buffer.
type Event struct {
	Kind   EventKind
	Handle int
}

// Host is the editor as the reconciler sees it. Implementations must deliver
// Dispatch calls serialized; nothing here locks.
type Host interface {
	// Document snapshots the buffer's current properties. ok is false if the
	// handle no longer resolves.
	Document(handle int) (_ Document, ok bool)

	// LoadedDocuments snapshots every loaded buffer, for the focus sweep.
	LoadedDocuments() ([]Document, error)

	// Save persists the document if and only if it is dirty, without moving
	// marks and without interactive notification. Must be a no-op on a clean
	// document.
	Save(doc Document) error

	// CreateFile writes the document to its path, creating missing parent
	// directories, without interactive notification.
	CreateFile(doc Document) error

	// Notify shows the user a non-blocking warning.
	Notify(msg string)
}

// Reconciler drives the classifier from editor events and issues saves when a
// document classifies as autosave-active. One per editor session.
type Reconciler struct {
	host       Host
	classifier Classifier
	registry   *Registry
	logf       func(format string, args ...interface{})
}

// NewReconciler returns a reconciler over host using the given classifier.
// logf receives diagnostics for suppressed errors; nil discards them.
func NewReconciler(host Host, c Classifier, logf func(format string, args ...interface{})) *Reconciler {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Reconciler{
		host:       host,
		classifier: c,
		registry:   NewRegistry(),
		logf:       logf,
	}
}

// Dispatch is the single entry point for editor events.
func (r *Reconciler) Dispatch(ev Event) error {
	switch ev.Kind {
	case EventFocusGained:
		return r.sweep()
	case EventBufferDeleted:
		r.registry.Forget(ev.Handle)
		return nil
	case EventInsertLeave, EventTextChanged, EventTextChangedInsert,
		EventIdleTimeout, EventFocusLost, EventBufferEntered:
		return r.Reconcile(ev.Handle)
	default:
		return fmt.Errorf("autosave: unknown event kind %v", ev.Kind)
	}
}

// Reconcile recomputes the state of a single buffer from live properties and
// issues a save when the result is autosave-active. Save failures are logged,
// never propagated: an autosave that cannot write must not interrupt editing.
func (r *Reconciler) Reconcile(handle int) error {
	doc, ok := r.host.Document(handle)
	if !ok {
		return fmt.Errorf("autosave: no document for handle %v", handle)
	}
	if r.classify(doc) == StateAutosave {
		// Save is modeled on :update, so this is a no-op when clean.
		if err := r.host.Save(doc); err != nil {
			r.logf("autosave: write of %v failed: %v", doc.DisplayName(), err)
		}
	}
	return nil
}

// classify runs the classifier, executes any requested effect, and commits
// the result to the registry.
func (r *Reconciler) classify(doc Document) State {
	rec := r.registry.Record(doc.Handle)
	state, effect := r.classifier.Classify(doc, rec.Prior(), rec.Enabled)
	pending := false
	if effect == EffectCreateFile {
		if err := r.host.CreateFile(doc); err != nil {
			r.logf("autosave: could not create %v: %v", doc.DisplayName(), err)
			// The file was never written, so the claim of an active
			// autosave would be false. Fall back to plain dirtiness and
			// keep the never-classified marker so a later event retries.
			state = dirtyState(doc)
			pending = true
		}
	}
	rec.commit(state, pending)
	return state
}

// sweep reclassifies every loaded buffer and reports, in one aggregated
// warning, those whose backing files vanished while the editor was in the
// background. No saves are issued from the sweep.
func (r *Reconciler) sweep() error {
	docs, err := r.host.LoadedDocuments()
	if err != nil {
		return fmt.Errorf("autosave: sweep could not list buffers: %v", err)
	}
	var gone []string
	for _, doc := range docs {
		if r.classify(doc) == StateDisappeared {
			gone = append(gone, doc.DisplayName())
		}
	}
	if len(gone) > 0 {
		sort.Strings(gone)
		r.host.Notify(fmt.Sprintf("autosave: no longer on disk: %v", strings.Join(gone, ", ")))
	}
	return nil
}

// State returns the last computed state for handle without forcing a
// recomputation; ok is false if the buffer was never classified. Display-only
// query, kept cheap on purpose.
func (r *Reconciler) State(handle int) (_ State, ok bool) {
	rec, ok := r.registry.Lookup(handle)
	if !ok {
		return StateUnset, false
	}
	return rec.State()
}

// Enabled reports the user override for handle. Unseen buffers default to
// enabled.
func (r *Reconciler) Enabled(handle int) bool {
	rec, ok := r.registry.Lookup(handle)
	if !ok {
		return true
	}
	return rec.Enabled
}

// SetEnabled sets the user override for handle. The next classification picks
// it up; callers wanting an immediate state refresh follow with Reconcile.
func (r *Reconciler) SetEnabled(handle int, enabled bool) {
	r.registry.Record(handle).Enabled = enabled
}

// Toggle flips the override for handle and returns the new value.
func (r *Reconciler) Toggle(handle int) bool {
	rec := r.registry.Record(handle)
	rec.Enabled = !rec.Enabled
	return rec.Enabled
}

// Forget drops all remembered state for handle.
func (r *Reconciler) Forget(handle int) {
	r.registry.Forget(handle)
}
