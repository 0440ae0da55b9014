package tracker

import (
	"io"
	"log"
	"sync"
)

// LogWriters routes the tracker's three log streams. A nil writer silences
// its stream.
type LogWriters struct {
	// Ops receives one line per algorithm configured from a record and per
	// walk aborted by adaptive step control.
	Ops io.Writer
	// Diag receives one line per element entered, with position and energy.
	Diag io.Writer
	// Trace receives one line per sub-step with its length and the RMS
	// sizes or β functions after it.
	Trace io.Writer
}

type stream int

const (
	streamOps stream = iota
	streamDiag
	streamTrace
)

var (
	mu      sync.RWMutex
	loggers [3]*log.Logger
)

// SetLogWriters replaces all three streams at once.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	for s, out := range [3]io.Writer{w.Ops, w.Diag, w.Trace} {
		loggers[s] = nil
		if out != nil {
			loggers[s] = log.New(out, "[tracker] ", log.LstdFlags|log.Lmicroseconds)
		}
	}
}

func logf(s stream, format string, args ...interface{}) {
	mu.RLock()
	l := loggers[s]
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs a configuration change or an aborted walk.
func Opsf(format string, args ...interface{}) { logf(streamOps, format, args...) }

// Diagf logs element entry.
func Diagf(format string, args ...interface{}) { logf(streamDiag, format, args...) }

// Tracef logs sub-step detail.
func Tracef(format string, args ...interface{}) { logf(streamTrace, format, args...) }
