// Package plugin is a thin driver around govim that turns channel-call
// errors into panics recovered at the callback boundary, so handler code can
// read straight through a sequence of Vim calls without per-call error
// plumbing.
package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/govim/govim"
)

type (
	// Driver is the value through which all Vim communication happens.
	Driver struct {
		Govim  govim.Govim
		prefix string
	}

	// DriverFunction is the signature of a function callback.
	DriverFunction func(args ...json.RawMessage) (interface{}, error)

	// DriverCommandFunction is the signature of a command callback.
	DriverCommandFunction func(flags govim.CommandFlags, args ...string) error

	// DriverAutoCommandFunction is the signature of an autocommand callback.
	DriverAutoCommandFunction func(args ...json.RawMessage) error
)

// NewDriver returns a Driver whose function, command and autocommand names
// are prefixed with name.
func NewDriver(name string) Driver {
	return Driver{prefix: name}
}

// Prefix returns the name prefix under which everything is registered.
func (d Driver) Prefix() string {
	return d.prefix
}

// ErrDriver wraps errors that interrupt a driver call sequence.
type ErrDriver struct {
	Underlying error
}

func (e ErrDriver) Error() string {
	return fmt.Sprintf("driver error: %v", e.Underlying)
}

// Do runs f, converting an ErrDriver panic raised by any driver call within
// into a returned error.
func (d Driver) Do(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(ErrDriver); ok {
				err = e.Underlying
				return
			}
			panic(r)
		}
	}()
	return f()
}

func (d Driver) errorf(format string, args ...interface{}) {
	panic(ErrDriver{Underlying: fmt.Errorf(format, args...)})
}

// Logf logs to the plugin's log file.
func (d Driver) Logf(format string, args ...interface{}) {
	d.Govim.Logf(format, args...)
}

func (d Driver) ChannelExpr(expr string) json.RawMessage {
	i, err := d.Govim.ChannelExpr(expr)
	if err != nil {
		d.errorf("ChannelExpr(%q) failed: %v", expr, err)
	}
	return i
}

func (d Driver) ChannelExprf(format string, args ...interface{}) json.RawMessage {
	return d.ChannelExpr(fmt.Sprintf(format, args...))
}

func (d Driver) ChannelCall(name string, args ...interface{}) json.RawMessage {
	i, err := d.Govim.ChannelCall(name, args...)
	if err != nil {
		d.errorf("ChannelCall(%v) failed: %v", name, err)
	}
	return i
}

func (d Driver) ChannelEx(expr string) {
	if err := d.Govim.ChannelEx(expr); err != nil {
		d.errorf("ChannelEx(%q) failed: %v", expr, err)
	}
}

func (d Driver) ChannelExf(format string, args ...interface{}) {
	d.ChannelEx(fmt.Sprintf(format, args...))
}

func (d Driver) Parse(j json.RawMessage, i interface{}) {
	if err := json.Unmarshal(j, i); err != nil {
		d.errorf("failed to parse from %q: %v", j, err)
	}
}

func (d Driver) ParseString(j json.RawMessage) string {
	var v string
	d.Parse(j, &v)
	return v
}

func (d Driver) ParseInt(j json.RawMessage) int {
	var v int
	d.Parse(j, &v)
	return v
}

// DefineFunction registers a prefixed Vim function.
func (d Driver) DefineFunction(name string, params []string, f DriverFunction) {
	if err := d.Govim.DefineFunction(d.prefix+name, params, d.doFunction(f)); err != nil {
		d.errorf("failed to define function %q: %v", d.prefix+name, err)
	}
}

// DefineCommand registers a prefixed Vim command.
func (d Driver) DefineCommand(name string, f DriverCommandFunction, attrs ...govim.CommAttr) {
	if err := d.Govim.DefineCommand(d.prefix+name, d.doCommand(f), attrs...); err != nil {
		d.errorf("failed to define command %q: %v", d.prefix+name, err)
	}
}

// DefineAutoCommand registers an autocommand.
func (d Driver) DefineAutoCommand(group string, events govim.Events, patts govim.Patterns, nested bool, f DriverAutoCommandFunction, exprs ...string) {
	if err := d.Govim.DefineAutoCommand(group, events, patts, nested, d.doAutoCommand(f), exprs...); err != nil {
		d.errorf("failed to define autocommand: %v", err)
	}
}

func (d Driver) doFunction(f DriverFunction) govim.VimFunction {
	return func(g govim.Govim, args ...json.RawMessage) (interface{}, error) {
		var res interface{}
		err := d.Do(func() error {
			var err error
			res, err = f(args...)
			return err
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

func (d Driver) doCommand(f DriverCommandFunction) govim.VimCommandFunction {
	return func(g govim.Govim, flags govim.CommandFlags, args ...string) error {
		return d.Do(func() error {
			return f(flags, args...)
		})
	}
}

func (d Driver) doAutoCommand(f DriverAutoCommandFunction) govim.VimAutoCommandFunction {
	return func(g govim.Govim, args ...json.RawMessage) error {
		return d.Do(func() error {
			return f(args...)
		})
	}
}
