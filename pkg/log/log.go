// Package log provides logging utilities including colored console output
// and per-session message transcripts.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var red = color.New(color.FgRed).FprintfFunc()
var yellow = color.New(color.FgYellow).FprintfFunc()
var blue = color.New(color.FgBlue).FprintfFunc()
var cyan = color.New(color.FgCyan).FprintfFunc()

// Logger writes colored messages to a writer. Verbose messages are only
// written when the logger was created with verbose enabled.
// A nil *Logger discards everything.
type Logger struct {
	out     io.Writer
	verbose bool
	mu      sync.Mutex
}

// NewLogger returns a logger writing to stderr.
func NewLogger(verbose bool) *Logger {
	return NewLoggerTo(os.Stderr, verbose)
}

// NewLoggerTo returns a logger writing to w.
func NewLoggerTo(w io.Writer, verbose bool) *Logger {
	return &Logger{out: w, verbose: verbose}
}

// ErrorMsg prints an error message in red color.
func (l *Logger) ErrorMsg(format string, a ...interface{}) {
	l.print(red, "[!] Error: "+format, a...)
}

// WarnMsg prints a warning in yellow color.
func (l *Logger) WarnMsg(format string, a ...interface{}) {
	l.print(yellow, "[~] "+format, a...)
}

// InfoMsg prints an informational message in blue color.
func (l *Logger) InfoMsg(format string, a ...interface{}) {
	l.print(blue, "[+] "+format, a...)
}

// VerboseMsg prints a debug message in cyan color if verbose logging is on.
// A newline is appended.
func (l *Logger) VerboseMsg(format string, a ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.print(cyan, "[v] "+format+"\n", a...)
}

// Verbose reports whether verbose messages are written.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) print(fn func(io.Writer, string, ...interface{}), format string, a ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.out, format, a...)
}

// ErrorMsg prints an error message to stderr in red color.
func ErrorMsg(format string, a ...interface{}) {
	red(os.Stderr, "[!] Error: "+format, a...)
}

// InfoMsg prints an informational message to stderr in blue color.
func InfoMsg(format string, a ...interface{}) {
	blue(os.Stderr, "[+] "+format, a...)
}
