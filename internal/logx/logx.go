// Package logx provides the diagnostic channel the Store pipeline uses for
// non-fatal conditions such as a MissingMethod lookup failure. It is not part
// of the Store's public contract (spec: "Logging is not part of the
// contract") but, like the teacher project's own log package, gives every
// build a structured, colorized place to surface warnings instead of a bare
// fmt.Println.
package logx

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/starkandwayne/goutils/ansi"
)

// Logger is the diagnostic channel interface the store package depends on.
// An application embedding the store can supply its own implementation;
// Default() wires a sensible stderr-based one.
type Logger interface {
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type writer struct {
	out     io.Writer
	colored bool
	debug   bool
}

// New builds a Logger that writes to out, colorizing with ansi sequences
// only when out looks like a terminal.
func New(out *os.File, debug bool) Logger {
	return &writer{out: out, colored: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()), debug: debug}
}

// Default returns the package-wide default logger: stderr, color gated on
// tty detection, debug tracing off.
func Default() Logger {
	return New(os.Stderr, false)
}

func (w *writer) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.colored {
		fmt.Fprint(w.out, ansi.Sprintf("@Y{warning:} %s\n", msg))
		return
	}
	fmt.Fprintf(w.out, "warning: %s\n", msg)
}

func (w *writer) Debugf(format string, args ...interface{}) {
	if !w.debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if w.colored {
		fmt.Fprint(w.out, ansi.Sprintf("@c{debug:} %s\n", msg))
		return
	}
	fmt.Fprintf(w.out, "debug: %s\n", msg)
}

// Noop discards everything; useful for tests that want silence.
func Noop() Logger { return noop{} }

type noop struct{}

func (noop) Warnf(string, ...interface{})  {}
func (noop) Debugf(string, ...interface{}) {}
