// Package dlog is the non-blocking logger used across the multiline
// packages. It is grounded on dtail's internal/io/logger: a small global
// logger that buffers messages on a channel and drains them from a single
// writer goroutine so that hot paths (Decode, flush) never block on I/O,
// trimmed down to what a library needs (no daily log files, no SIGHUP
// rotation, no color painting) since those belonged to dtail's process-level
// concerns, not ours.
package dlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	infoStr  = "INFO"
	warnStr  = "WARN"
	errorStr = "ERROR"
	debugStr = "DEBUG"
)

type entry struct {
	severity string
	message  string
}

// Logger is a small non-blocking logger built with New. Until Start is
// called it writes each message synchronously; after Start, messages go
// through a buffered channel to a background writer. A package-level
// Default instance backs the convenience functions (Info, Warn, Error,
// Debug) below.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	debug   bool
	ch      chan entry
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	started bool
}

// New creates a Logger writing to w. debug enables Debug-level messages.
func New(w io.Writer, debug bool) *Logger {
	return &Logger{out: w, debug: debug}
}

// Start launches the background writer goroutine. It is idempotent.
func (l *Logger) Start() {
	l.once.Do(func() {
		l.ch = make(chan entry, 256)
		l.done = make(chan struct{})
		l.stopped = make(chan struct{})
		l.started = true
		go l.run()
	})
}

// Stop drains and stops the background writer, blocking until the writer
// goroutine has exited; safe to call multiple times.
func (l *Logger) Stop() {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	<-l.stopped
}

func (l *Logger) run() {
	defer close(l.stopped)
	for {
		select {
		case e := <-l.ch:
			l.write(e)
		case <-l.done:
			// Drain whatever is left without blocking further producers.
			for {
				select {
				case e := <-l.ch:
					l.write(e)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(e entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s|%s|%s\n", time.Now().Format("2006-01-02T15:04:05.000Z0700"), e.severity, e.message)
}

func (l *Logger) log(severity string, args ...interface{}) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case string:
			parts = append(parts, v)
		case error:
			parts = append(parts, v.Error())
		default:
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}
	msg := strings.Join(parts, " ")

	if !l.started {
		// Not started: log synchronously so tests/standalone use never lose
		// a message silently.
		l.write(entry{severity: severity, message: msg})
		return
	}
	select {
	case l.ch <- entry{severity: severity, message: msg}:
	default:
		// Buffer full: drop rather than block the hot path.
	}
}

func (l *Logger) Info(args ...interface{})  { l.log(infoStr, args...) }
func (l *Logger) Warn(args ...interface{})  { l.log(warnStr, args...) }
func (l *Logger) Error(args ...interface{}) { l.log(errorStr, args...) }
func (l *Logger) Debug(args ...interface{}) {
	if l.debug {
		l.log(debugStr, args...)
	}
}

// Default is the package-level logger used by the convenience functions.
var Default = New(os.Stderr, false)

func Info(args ...interface{})  { Default.Info(args...) }
func Warn(args ...interface{})  { Default.Warn(args...) }
func Error(args ...interface{}) { Default.Error(args...) }
func Debug(args ...interface{}) { Default.Debug(args...) }
