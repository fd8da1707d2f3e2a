// Command auspicious-autosave is a Vim8 channel-based plugin, written in Go,
// that transparently writes modified buffers back to disk. It classifies
// every buffer on each lifecycle event (leaving insert mode, text changes,
// idle, focus changes) and issues a silent :update for the ones where
// autosaving is safe.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkuettel/auspicious-autosave/config"
	"github.com/dkuettel/auspicious-autosave/internal/autosave"
	"github.com/dkuettel/auspicious-autosave/internal/plugin"
	"github.com/dkuettel/auspicious-autosave/internal/watch"
	"github.com/govim/govim"
	"github.com/govim/govim/testsetup"
	"github.com/kr/pretty"
	"gopkg.in/tomb.v2"
)

const (
	PluginPrefix = "Autosave"
)

var (
	flagSet = flag.NewFlagSet("auspicious-autosave", flag.ContinueOnError)
	fTail   = flagSet.Bool("tail", false, "also log output to stdout")
)

func main() {
	if err := mainerr(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainerr() error {
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if sock := os.Getenv(testsetup.EnvTestSocket); sock != "" {
		ln, err := net.Listen("tcp", sock)
		if err != nil {
			return fmt.Errorf("failed to listen on %v: %v", sock, err)
		}
		for {
			conn, err := ln.Accept()
			if err != nil {
				return fmt.Errorf("failed to accept connection on %v: %v", sock, err)
			}

			go func() {
				if err := launch(conn, conn); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}()
		}
	} else {
		return launch(os.Stdin, os.Stdout)
	}
}

func launch(in io.ReadCloser, out io.WriteCloser) error {
	defer out.Close()

	d := newplugin()

	tf, err := d.createLogFile("autosave")
	if err != nil {
		return err
	}
	defer tf.Close()

	var log io.Writer = tf
	if *fTail {
		log = io.MultiWriter(tf, os.Stdout)
	}

	if os.Getenv(testsetup.EnvTestSocket) != "" {
		fmt.Fprintf(os.Stderr, "New connection will log to %v\n", tf.Name())
	}

	g, err := govim.NewGovim(d, in, out, log, &d.tomb)
	if err != nil {
		return fmt.Errorf("failed to create govim instance: %v", err)
	}

	d.tomb.Go(g.Run)
	return d.tomb.Wait()
}

func (g *autosaveplugin) createLogFile(prefix string) (*os.File, error) {
	var tf *os.File
	var err error
	logfiletmpl := os.Getenv("AUTOSAVE_LOGFILE_TMPL")
	if logfiletmpl == "" {
		logfiletmpl = "%v_%v_%v"
	}
	logfiletmpl += ".log"
	logfiletmpl = strings.Replace(logfiletmpl, "%v", prefix, 1)
	logfiletmpl = strings.Replace(logfiletmpl, "%v", time.Now().Format("20060102_1504_05"), 1)
	if strings.Contains(logfiletmpl, "%v") {
		logfiletmpl = strings.Replace(logfiletmpl, "%v", "*", 1)
		tf, err = os.CreateTemp(g.tmpDir, logfiletmpl)
	} else {
		// append to existing file
		tf, err = os.OpenFile(filepath.Join(g.tmpDir, logfiletmpl), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}
	if err != nil {
		err = fmt.Errorf("failed to create log file: %v", err)
	}
	return tf, err
}

type autosaveplugin struct {
	plugin.Driver
	vimstate *vimstate

	// errCh is the channel passed from govim on Init
	errCh chan error

	// tmpDir is the temp directory within which log files will be created
	tmpDir string

	tomb tomb.Tomb

	// watcher observes the directories of autosave-tracked files so external
	// removals show up in the log as they happen. May be nil if the
	// filesystem does not support watching.
	watcher *watch.Watcher

	// inShutdown is closed when govim is told to Shutdown
	inShutdown chan struct{}
}

func newplugin() *autosaveplugin {
	d := plugin.NewDriver(PluginPrefix)
	res := &autosaveplugin{
		Driver:     d,
		inShutdown: make(chan struct{}),
		vimstate: &vimstate{
			Driver: d,
		},
	}
	res.vimstate.autosaveplugin = res
	return res
}

// pluginConfig is the one-shot setup read from g:autosave_* at Init.
type pluginConfig struct {
	IdleTimeoutMS       int
	ReadStaleOnFocus    bool
	WriteOnWindowSwitch bool
	ExcludedPrefixes    []string
	ExcludedFiletypes   []string
}

func (g *autosaveplugin) Init(gg govim.Govim, errCh chan error) error {
	g.errCh = errCh
	g.Driver.Govim = gg
	g.vimstate.Driver.Govim = gg.Scheduled()

	return g.Do(func() error {
		v := g.vimstate

		cfg := g.loadConfig()
		g.Logf("autosave: config: %v", pretty.Sprint(cfg))
		v.config = cfg

		rules := autosave.DefaultExclusions()
		rules.PathPrefixes = append(rules.PathPrefixes, cfg.ExcludedPrefixes...)
		rules.ContentTypes = append(rules.ContentTypes, cfg.ExcludedFiletypes...)
		v.reconciler = autosave.NewReconciler(v, autosave.Classifier{Rules: rules}, v.Logf)

		g.startWatcher()

		// CursorHold is the idle trigger; its delay is &updatetime.
		g.ChannelExf("set updatetime=%v", cfg.IdleTimeoutMS)
		if cfg.ReadStaleOnFocus {
			g.ChannelEx("set autoread")
		}

		// The buffer-event set. Registered nested so the :update a handler
		// issues fires the usual write autocommand chain.
		type autocmdReg struct {
			kind   autosave.EventKind
			events govim.Events
		}
		regs := []autocmdReg{
			{autosave.EventInsertLeave, govim.Events{govim.EventInsertLeave}},
			{autosave.EventTextChanged, govim.Events{govim.EventTextChanged}},
			{autosave.EventTextChangedInsert, govim.Events{govim.EventTextChangedI}},
			{autosave.EventIdleTimeout, govim.Events{govim.EventCursorHold, govim.EventCursorHoldI}},
			{autosave.EventBufferEntered, govim.Events{govim.EventBufEnter}},
		}
		if cfg.WriteOnWindowSwitch {
			regs = append(regs, autocmdReg{autosave.EventFocusLost, govim.Events{govim.EventFocusLost, govim.EventWinLeave}})
		}
		for _, reg := range regs {
			g.DefineAutoCommand("", reg.events, govim.Patterns{"*"}, true, v.bufEventHandler(reg.kind), "eval(expand('<abuf>'))")
		}
		g.DefineAutoCommand("", govim.Events{govim.EventFocusGained}, govim.Patterns{"*"}, true, v.focusGained)
		g.DefineAutoCommand("", govim.Events{govim.EventBufDelete}, govim.Patterns{"*"}, false, v.bufDelete, "eval(expand('<abuf>'))")

		g.DefineCommand(string(config.CommandEnable), v.enable, govim.NArgsZeroOrOne)
		g.DefineCommand(string(config.CommandDisable), v.disable, govim.NArgsZeroOrOne)
		g.DefineCommand(string(config.CommandToggle), v.toggle, govim.NArgsZeroOrOne)

		g.DefineFunction(string(config.FunctionState), []string{"bufnr"}, v.stateFunc)
		g.DefineFunction(string(config.FunctionEnabled), []string{"bufnr"}, v.enabledFunc)

		return nil
	})
}

// startWatcher is best-effort: autosave works without it, the log just loses
// the "removed while unfocused" breadcrumbs.
func (g *autosaveplugin) startWatcher() {
	w, err := watch.New()
	if err != nil {
		g.Logf("autosave: file watching unavailable: %v", err)
		return
	}
	g.watcher = w
	g.tomb.Go(w.Run)
	g.tomb.Go(func() error {
		for path := range w.Removals {
			g.Logf("autosave: %v removed outside the editor", path)
		}
		return nil
	})
}

func (g *autosaveplugin) loadConfig() pluginConfig {
	cfg := pluginConfig{
		IdleTimeoutMS:       500,
		ReadStaleOnFocus:    true,
		WriteOnWindowSwitch: true,
	}
	if g.globalSet(config.GlobalIdleTimeoutMS) {
		cfg.IdleTimeoutMS = g.ParseInt(g.ChannelExpr(config.GlobalIdleTimeoutMS))
	}
	if g.globalSet(config.GlobalReadStaleOnFocus) {
		cfg.ReadStaleOnFocus = g.ParseInt(g.ChannelExpr(config.GlobalReadStaleOnFocus)) != 0
	}
	if g.globalSet(config.GlobalWriteOnWindowSwitch) {
		cfg.WriteOnWindowSwitch = g.ParseInt(g.ChannelExpr(config.GlobalWriteOnWindowSwitch)) != 0
	}
	if g.globalSet(config.GlobalExcludedPrefixes) {
		g.Parse(g.ChannelExpr(config.GlobalExcludedPrefixes), &cfg.ExcludedPrefixes)
	}
	if g.globalSet(config.GlobalExcludedFiletypes) {
		g.Parse(g.ChannelExpr(config.GlobalExcludedFiletypes), &cfg.ExcludedFiletypes)
	}
	return cfg
}

func (g *autosaveplugin) globalSet(name string) bool {
	return g.ParseInt(g.ChannelExprf(`exists("%v")`, name)) == 1
}

func (g *autosaveplugin) Shutdown() error {
	close(g.inShutdown)
	if g.watcher != nil {
		g.watcher.Close()
	}
	return nil
}
