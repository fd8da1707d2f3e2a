package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dkuettel/auspicious-autosave/internal/autosave"
	"github.com/dkuettel/auspicious-autosave/internal/fileio"
	"github.com/dkuettel/auspicious-autosave/internal/plugin"
	"github.com/govim/govim"
)

type vimstate struct {
	plugin.Driver
	*autosaveplugin

	// reconciler owns all per-buffer autosave state. It is only safe to
	// touch it in the callback for a defined function, command or
	// autocommand.
	reconciler *autosave.Reconciler

	config pluginConfig
}

// docInfoExpr builds the Vim expression snapshotting every buffer property
// the classifier looks at. bufexpr must evaluate to a buffer number.
func docInfoExpr(bufexpr string) string {
	return fmt.Sprintf(`{`+
		`"Num": %[1]v, `+
		`"Name": empty(bufname(%[1]v)) ? '' : fnamemodify(bufname(%[1]v), ':p'), `+
		`"Readonly": getbufvar(%[1]v, '&readonly'), `+
		`"Modifiable": getbufvar(%[1]v, '&modifiable'), `+
		`"Buftype": getbufvar(%[1]v, '&buftype'), `+
		`"Bufhidden": getbufvar(%[1]v, '&bufhidden'), `+
		`"Filetype": getbufvar(%[1]v, '&filetype'), `+
		`"Modified": getbufvar(%[1]v, '&modified')`+
		`}`, bufexpr)
}

type docInfo struct {
	Num        int
	Name       string
	Readonly   int
	Modifiable int
	Buftype    string
	Bufhidden  string
	Filetype   string
	Modified   int
}

func (di docInfo) document() autosave.Document {
	kind := autosave.KindNormal
	if di.Buftype != "" {
		kind = autosave.KindSpecial
	}
	hide := autosave.HideNormal
	switch di.Bufhidden {
	case "wipe":
		hide = autosave.HideWipe
	case "delete":
		hide = autosave.HideDelete
	}
	return autosave.Document{
		Handle:      di.Num,
		Path:        di.Name,
		ReadOnly:    di.Readonly != 0,
		Modifiable:  di.Modifiable != 0,
		Kind:        kind,
		Hide:        hide,
		ContentType: di.Filetype,
		Dirty:       di.Modified != 0,
	}
}

// bufEventHandler returns the autocommand callback for one event kind; every
// buffer-scoped event funnels into the reconciler this way.
func (v *vimstate) bufEventHandler(kind autosave.EventKind) plugin.DriverAutoCommandFunction {
	return func(args ...json.RawMessage) error {
		return v.reconciler.Dispatch(autosave.Event{Kind: kind, Handle: v.ParseInt(args[0])})
	}
}

func (v *vimstate) focusGained(args ...json.RawMessage) error {
	return v.reconciler.Dispatch(autosave.Event{Kind: autosave.EventFocusGained})
}

func (v *vimstate) bufDelete(args ...json.RawMessage) error {
	bufnr := v.ParseInt(args[0])
	if v.watcher != nil {
		// the buffer name is still resolvable while BufDelete fires
		if path := v.ParseString(v.ChannelExprf(`empty(bufname(%[1]v)) ? '' : fnamemodify(bufname(%[1]v), ':p')`, bufnr)); path != "" {
			v.watcher.Forget(path)
		}
	}
	return v.reconciler.Dispatch(autosave.Event{Kind: autosave.EventBufferDeleted, Handle: bufnr})
}

// Document implements autosave.Host. Properties are always fetched fresh;
// stored state is never trusted for eligibility.
func (v *vimstate) Document(handle int) (autosave.Document, bool) {
	if v.ParseInt(v.ChannelExprf("bufexists(%v)", handle)) == 0 {
		return autosave.Document{}, false
	}
	var di docInfo
	v.Parse(v.ChannelExpr(docInfoExpr(strconv.Itoa(handle))), &di)
	return di.document(), true
}

// LoadedDocuments implements autosave.Host.
func (v *vimstate) LoadedDocuments() ([]autosave.Document, error) {
	var infos []struct {
		Bufnr int `json:"bufnr"`
	}
	v.Parse(v.ChannelExpr(`getbufinfo({'bufloaded': 1})`), &infos)
	docs := make([]autosave.Document, 0, len(infos))
	for _, bi := range infos {
		if doc, ok := v.Document(bi.Bufnr); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Save implements autosave.Host: :update semantics, so nothing is written
// when the buffer is clean, marks stay put, and silent! keeps write failures
// out of the user's face.
func (v *vimstate) Save(doc autosave.Document) error {
	if doc.Handle != v.currentBufnr() {
		// :update acts on the current buffer; the events that lead here are
		// all current-buffer events, so a mismatch means the buffer changed
		// underneath us and the next event will catch up.
		return nil
	}
	v.ChannelEx("keepmarks silent! update")
	v.trackWatch(doc.Path)
	return nil
}

// CreateFile implements autosave.Host: the initial write-through for a
// never-yet-saved buffer, parent directories included.
func (v *vimstate) CreateFile(doc autosave.Document) error {
	content := v.ParseString(v.ChannelExprf(`join(getbufline(%v, 1, '$'), "\n") . "\n"`, doc.Handle))
	if err := fileio.Write(doc.Path, []byte(content)); err != nil {
		return err
	}
	v.trackWatch(doc.Path)
	return nil
}

// Notify implements autosave.Host.
func (v *vimstate) Notify(msg string) {
	v.ChannelExf("echohl WarningMsg | echomsg %v | echohl None", vimQuote(msg))
}

func (v *vimstate) trackWatch(path string) {
	if v.watcher == nil || path == "" {
		return
	}
	if err := v.watcher.Track(path); err != nil {
		v.Logf("autosave: could not watch %v: %v", path, err)
	}
}

func (v *vimstate) enable(flags govim.CommandFlags, args ...string) error {
	return v.setEnabled(true, args)
}

func (v *vimstate) disable(flags govim.CommandFlags, args ...string) error {
	return v.setEnabled(false, args)
}

func (v *vimstate) setEnabled(enabled bool, args []string) error {
	handle, err := v.resolveHandle(args)
	if err != nil {
		return err
	}
	v.reconciler.SetEnabled(handle, enabled)
	// reclassify now so a statusline reflects the change without waiting
	// for the next edit
	return v.reconciler.Reconcile(handle)
}

func (v *vimstate) toggle(flags govim.CommandFlags, args ...string) error {
	handle, err := v.resolveHandle(args)
	if err != nil {
		return err
	}
	v.reconciler.Toggle(handle)
	return v.reconciler.Reconcile(handle)
}

func (v *vimstate) stateFunc(args ...json.RawMessage) (interface{}, error) {
	handle := v.functionHandle(args)
	state, ok := v.reconciler.State(handle)
	if !ok {
		return "", nil
	}
	return state.String(), nil
}

func (v *vimstate) enabledFunc(args ...json.RawMessage) (interface{}, error) {
	if v.reconciler.Enabled(v.functionHandle(args)) {
		return 1, nil
	}
	return 0, nil
}

// functionHandle resolves the bufnr argument of a Vim function; 0 or absent
// means the current buffer.
func (v *vimstate) functionHandle(args []json.RawMessage) int {
	if len(args) == 0 {
		return v.currentBufnr()
	}
	if handle := v.ParseInt(args[0]); handle != 0 {
		return handle
	}
	return v.currentBufnr()
}

// resolveHandle resolves the optional bufnr argument of a command; 0 or
// absent means the current buffer.
func (v *vimstate) resolveHandle(args []string) (int, error) {
	if len(args) == 0 {
		return v.currentBufnr(), nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid buffer number %q: %v", args[0], err)
	}
	if n == 0 {
		return v.currentBufnr(), nil
	}
	if v.ParseInt(v.ChannelExprf("bufexists(%v)", n)) == 0 {
		return 0, fmt.Errorf("no buffer %v", n)
	}
	return n, nil
}

func (v *vimstate) currentBufnr() int {
	return v.ParseInt(v.ChannelCall("bufnr", "%"))
}

func vimQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
