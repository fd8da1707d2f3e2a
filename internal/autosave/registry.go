package autosave

// Record is the per-document state autosave remembers between events. It is
// only safe to touch a Record from within an event handler; the host delivers
// those serialized.
type Record struct {
	// Enabled is the user override, independent of the computed state.
	Enabled bool

	state State

	// createPending is set when the new-file creating write failed. It keeps
	// the document counting as never-classified so the next event retries
	// creation instead of reporting a file that never existed as
	// disappeared.
	createPending bool
}

// State returns the last committed state; ok is false if the document has
// never been classified.
func (r *Record) State() (_ State, ok bool) {
	return r.state, r.state != StateUnset
}

// Prior returns what the classifier should treat as the document's history.
func (r *Record) Prior() Prior {
	if r.createPending || r.state == StateUnset {
		return Prior{}
	}
	return Classified(r.state)
}

func (r *Record) commit(s State, createPending bool) {
	r.state = s
	r.createPending = createPending
}

// Registry maps document handles to their records. It is owned by the
// reconciler and passed by reference, never ambient. Entries are created
// lazily on first classification and pruned when the editor destroys the
// handle.
type Registry struct {
	records map[int]*Record
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[int]*Record)}
}

// Record returns the record for handle, creating it (enabled, never
// classified) on first sight.
func (g *Registry) Record(handle int) *Record {
	r, ok := g.records[handle]
	if !ok {
		r = &Record{Enabled: true}
		g.records[handle] = r
	}
	return r
}

// Lookup returns the record for handle without creating one.
func (g *Registry) Lookup(handle int) (*Record, bool) {
	r, ok := g.records[handle]
	return r, ok
}

// Forget drops the record for handle. Called when the editor deletes the
// buffer; without this the map grows for the life of the session.
func (g *Registry) Forget(handle int) {
	delete(g.records, handle)
}

// Len reports the number of tracked documents.
func (g *Registry) Len() int {
	return len(g.records)
}
