// Package debug provides conditional trace logging for cv.
//
// Tracing is enabled by setting the CV_DEBUG environment variable:
//
//	CV_DEBUG=1 cv render --instance 42 -o case.svg
//
// Messages go to stderr with timestamps. When disabled every function returns
// immediately.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("CV_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[CV_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled turns tracing on or off at runtime.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[CV_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects trace output. The TUI points it at a file so stderr
// does not corrupt the alt screen.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "[CV_DEBUG] ", log.Ltime|log.Lmicroseconds)
}

func get() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a printf-style message if debug logging is enabled.
func Log(format string, args ...any) {
	if l := get(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if l := get(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a message only if cond is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("session.Load")()
func LogEnterExit(name string) func() {
	l := get()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if l := get(); l != nil {
		l.Printf("%s: %T = %+v", name, v, v)
	}
}
