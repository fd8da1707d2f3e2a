package autosave

import "os"

// Exclusions configures which otherwise-writable documents autosave must keep
// its hands off. The zero value excludes nothing beyond the structural checks
// (empty path, special buffers, wipe/delete hide behavior).
type Exclusions struct {
	// PathPrefixes excludes documents whose path starts with any of these.
	// Covers version-control virtual schemes (fugitive://) and filesystems
	// too slow to write on every idle tick (scp://).
	PathPrefixes []string

	// ContentTypes excludes documents by filetype, e.g. commit messages,
	// which the user expects to abandon by quitting without writing.
	ContentTypes []string
}

// DefaultExclusions is the exclusion set used when the user configures none.
func DefaultExclusions() Exclusions {
	return Exclusions{
		PathPrefixes: []string{"fugitive://", "scp://"},
		ContentTypes: []string{"gitcommit"},
	}
}

func (e Exclusions) matchesPrefix(path string) bool {
	for _, p := range e.PathPrefixes {
		if len(path) >= len(p) && path[:len(p)] == p {
			return true
		}
	}
	return false
}

func (e Exclusions) matchesContentType(ct string) bool {
	for _, c := range e.ContentTypes {
		if ct == c {
			return true
		}
	}
	return false
}

// Effect is a side effect the caller must perform as part of committing a
// classification. Classification itself never touches the filesystem beyond
// the existence check.
type Effect int

const (
	EffectNone Effect = iota

	// EffectCreateFile asks for a silent creating write of the document to
	// its path, parent directories included. Requested exactly once, for an
	// eligible document seen for the first time with no file on disk.
	EffectCreateFile
)

// Classifier maps a document snapshot plus remembered prior state to a new
// state. Exists is injectable for tests; nil means ask the OS.
type Classifier struct {
	Rules  Exclusions
	Exists func(path string) bool
}

func (c *Classifier) exists(path string) bool {
	if c.Exists != nil {
		return c.Exists(path)
	}
	_, err := os.Stat(path)
	return err == nil
}

// Classify computes the document's new state. Evaluation order matters and
// first match wins: readonly, then unmodifiable, then the exclusion
// predicate, then on-disk existence. prior is consulted only to distinguish
// "never saved yet" from "was tracked, file vanished".
func (c *Classifier) Classify(doc Document, prior Prior, enabled bool) (State, Effect) {
	switch {
	case doc.ReadOnly:
		return StateReadonly, EffectNone
	case !doc.Modifiable:
		return StateLocked, EffectNone
	case c.excluded(doc, enabled):
		return dirtyState(doc), EffectNone
	case c.exists(doc.Path):
		return StateAutosave, EffectNone
	case !prior.IsClassified():
		// A buffer with no history and no file is one the user is in the
		// middle of creating: write it through so later edits autosave.
		return StateAutosave, EffectCreateFile
	default:
		// The file was there before and is gone now, most likely deleted
		// outside the editor on purpose. Recreating it behind the user's
		// back would be a surprise; quarantine until an explicit save.
		return StateDisappeared, EffectNone
	}
}

func (c *Classifier) excluded(doc Document, enabled bool) bool {
	return doc.Path == "" ||
		doc.Kind == KindSpecial ||
		doc.Hide == HideWipe ||
		doc.Hide == HideDelete ||
		c.Rules.matchesPrefix(doc.Path) ||
		c.Rules.matchesContentType(doc.ContentType) ||
		!enabled
}

func dirtyState(doc Document) State {
	if doc.Dirty {
		return StateModified
	}
	return StateSaved
}
