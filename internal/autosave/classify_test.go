package autosave

import "testing"

// eligibleDoc is a baseline document that, with a file on disk, classifies as
// autosave-active. Tests flip one property at a time.
func eligibleDoc() Document {
	return Document{
		Handle:      1,
		Path:        "/home/u/notes/todo.md",
		Modifiable:  true,
		ContentType: "markdown",
		Dirty:       true,
	}
}

func newClassifier(existing ...string) *Classifier {
	files := make(map[string]bool)
	for _, f := range existing {
		files[f] = true
	}
	return &Classifier{
		Rules:  DefaultExclusions(),
		Exists: func(path string) bool { return files[path] },
	}
}

func TestClassifyPriorities(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Document)
		prior   Prior
		enabled bool
		want    State
	}{
		{
			name:    "readonly wins over everything",
			mutate:  func(d *Document) { d.ReadOnly = true; d.Modifiable = false; d.Path = "" },
			enabled: false,
			want:    StateReadonly,
		},
		{
			name:    "readonly even when disabled",
			mutate:  func(d *Document) { d.ReadOnly = true },
			enabled: false,
			want:    StateReadonly,
		},
		{
			name:    "unmodifiable is locked",
			mutate:  func(d *Document) { d.Modifiable = false },
			enabled: true,
			want:    StateLocked,
		},
		{
			name:    "locked even when disabled",
			mutate:  func(d *Document) { d.Modifiable = false },
			enabled: false,
			want:    StateLocked,
		},
		{
			name:    "eligible with file on disk",
			mutate:  func(d *Document) {},
			enabled: true,
			want:    StateAutosave,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := eligibleDoc()
			tt.mutate(&doc)
			c := newClassifier(eligibleDoc().Path)
			got, effect := c.Classify(doc, tt.prior, tt.enabled)
			if got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
			if effect != EffectNone {
				t.Fatalf("Classify() effect = %v, want none", effect)
			}
		})
	}
}

func TestClassifyExclusions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Document)
		enabled bool
	}{
		{"empty path", func(d *Document) { d.Path = "" }, true},
		{"special buffer", func(d *Document) { d.Kind = KindSpecial }, true},
		{"wipe on hide", func(d *Document) { d.Hide = HideWipe }, true},
		{"delete on hide", func(d *Document) { d.Hide = HideDelete }, true},
		{"vcs virtual path", func(d *Document) { d.Path = "fugitive:///repo/.git//0/file.go" }, true},
		{"slow filesystem", func(d *Document) { d.Path = "scp://host//etc/motd" }, true},
		{"commit message", func(d *Document) { d.ContentType = "gitcommit" }, true},
		{"disabled", func(d *Document) {}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClassifier(eligibleDoc().Path)

			dirty := eligibleDoc()
			tt.mutate(&dirty)
			dirty.Dirty = true
			if got, _ := c.Classify(dirty, Prior{}, tt.enabled); got != StateModified {
				t.Fatalf("dirty excluded doc: Classify() = %v, want %v", got, StateModified)
			}

			clean := eligibleDoc()
			tt.mutate(&clean)
			clean.Dirty = false
			if got, _ := c.Classify(clean, Prior{}, tt.enabled); got != StateSaved {
				t.Fatalf("clean excluded doc: Classify() = %v, want %v", got, StateSaved)
			}
		})
	}
}

func TestClassifyConfigurableExclusions(t *testing.T) {
	c := newClassifier(eligibleDoc().Path)
	c.Rules.PathPrefixes = append(c.Rules.PathPrefixes, "/mnt/slow/")
	c.Rules.ContentTypes = append(c.Rules.ContentTypes, "hgcommit")

	doc := eligibleDoc()
	doc.Path = "/mnt/slow/file.txt"
	if got, _ := c.Classify(doc, Prior{}, true); got != StateModified {
		t.Fatalf("configured prefix: Classify() = %v, want %v", got, StateModified)
	}

	doc = eligibleDoc()
	doc.ContentType = "hgcommit"
	if got, _ := c.Classify(doc, Prior{}, true); got != StateModified {
		t.Fatalf("configured content type: Classify() = %v, want %v", got, StateModified)
	}
}

func TestClassifyNewFileRequestsCreation(t *testing.T) {
	c := newClassifier() // nothing on disk
	doc := eligibleDoc()

	got, effect := c.Classify(doc, Prior{}, true)
	if got != StateAutosave {
		t.Fatalf("Classify() = %v, want %v", got, StateAutosave)
	}
	if effect != EffectCreateFile {
		t.Fatalf("Classify() effect = %v, want create", effect)
	}
}

func TestClassifyDisappeared(t *testing.T) {
	c := newClassifier() // nothing on disk
	doc := eligibleDoc()

	got, effect := c.Classify(doc, Classified(StateAutosave), true)
	if got != StateDisappeared {
		t.Fatalf("Classify() = %v, want %v", got, StateDisappeared)
	}
	if effect != EffectNone {
		t.Fatalf("Classify() effect = %v, want none", effect)
	}
}

func TestClassifyDisabledNeverCreates(t *testing.T) {
	c := newClassifier() // nothing on disk
	doc := eligibleDoc()

	got, effect := c.Classify(doc, Prior{}, false)
	if got != StateModified {
		t.Fatalf("Classify() = %v, want %v", got, StateModified)
	}
	if effect != EffectNone {
		t.Fatalf("disabled doc requested effect %v", effect)
	}
}

func TestClassifyDefaultsToStat(t *testing.T) {
	c := &Classifier{Rules: DefaultExclusions()}
	doc := eligibleDoc()
	doc.Path = t.TempDir() + "/present.txt"

	// prior is classified, so a missing file must come back disappeared
	// rather than triggering creation
	if got, _ := c.Classify(doc, Classified(StateAutosave), true); got != StateDisappeared {
		t.Fatalf("missing file: Classify() = %v, want %v", got, StateDisappeared)
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		StateUnset:       "",
		StateReadonly:    "readonly",
		StateLocked:      "locked",
		StateAutosave:    "autosave",
		StateModified:    "modified",
		StateSaved:       "saved",
		StateDisappeared: "disappeared",
	}
	for s, str := range want {
		if s.String() != str {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), str)
		}
	}
}
