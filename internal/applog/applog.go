// Package applog is duskline's ambient logger: a thin wrapper over the
// standard library's *log.Logger writing append-only to a file under the
// config directory, one line per event (spec §7's error-kind table names
// "log" as the surfacing action for protocol-level errors).
//
// Grounded on h2/internal/activitylog's shape (a narrow Logger struct with
// one method per event, wrapping a plain log.Logger rather than a
// structured-logging library) — h2 itself never imports a logging
// framework, so duskline doesn't either; this is the one ambient concern
// where the teacher's own choice is the standard library, recorded here
// rather than left implicit.
package applog

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps a single destination file, matching h2's one-file-per-thing
// convention instead of a process-wide singleton.
type Logger struct {
	l *log.Logger
	f *os.File
}

// Open appends to (creating if needed) the log file at path.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Logger{
		l: log.New(f, "", log.LstdFlags),
		f: f,
	}, nil
}

// Log writes one line: "kind: field1 field2 ...".
func (lg *Logger) Log(kind string, fields ...interface{}) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Println(kind+":", fmt.Sprint(fields...))
}

// Warn writes a "warn" prefixed line for a recoverable error (spec §7:
// most error kinds are "local recovery ... do not abort").
func (lg *Logger) Warn(kind string, err error) {
	lg.Log("warn:"+kind, err)
}

// Close closes the underlying file.
func (lg *Logger) Close() error {
	if lg == nil || lg.f == nil {
		return nil
	}
	return lg.f.Close()
}
