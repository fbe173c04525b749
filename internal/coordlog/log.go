// Package coordlog is the ambient logging primitive shared by every
// coordinator package, grounded directly on the teacher's
// errors.go:logf — a verbose-gated, timestamped log.Printf wrapper.
// No third-party logging library appears anywhere in the retrieved
// pack for a project this shape, so this stays on the standard
// library's log package rather than reaching for one.
package coordlog

import (
	"log"
	"time"
)

const logDate = "2006-01-02T15:04:05.000Z07:00"

// Logger gates output on Verbose the same way the teacher's logf
// function gates on cfg.verbose, so quiet production runs stay quiet
// and local/dev runs can opt into per-event detail.
type Logger struct {
	Verbose bool
}

func New(verbose bool) *Logger {
	return &Logger{Verbose: verbose}
}

func (l *Logger) Logf(format string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// Errorf always logs regardless of Verbose — persistence and
// audit-write faults must surface even in quiet mode, per the
// "logged but does not fail the handler" requirement every
// best-effort write path in this coordinator follows.
func (l *Logger) Errorf(format string, args ...any) {
	log.Printf("%s | ERROR | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}
