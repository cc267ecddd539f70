package envkernel

import "github.com/joeycumines/logiface"

// logifaceLogger adapts a generified *logiface.Logger[logiface.Event] to
// the kernel's Logger interface, letting callers back kernel diagnostics
// with any logiface-compatible sink (zerolog, logrus, stumpy, ...) the same
// way eventloop's test suite exercises logiface as a pluggable backend
// (coverage_extra_test.go), except wired here as a real constructor rather
// than test-only scaffolding.
type logifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger wraps a logiface logger for use as a kernel Logger.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{l: l}
}

// IsEnabled implements Logger.
func (a *logifaceLogger) IsEnabled(LogLevel) bool {
	return a.l != nil && a.l.Level() != logiface.LevelDisabled
}

// Log implements Logger.
func (a *logifaceLogger) Log(entry LogEntry) {
	if a.l == nil {
		return
	}

	var b *logiface.Builder[logiface.Event]
	switch entry.Level {
	case LevelDebug:
		b = a.l.Debug()
	case LevelWarn:
		b = a.l.Warning()
	case LevelError:
		b = a.l.Err()
	default:
		b = a.l.Info()
	}
	if b == nil || !b.Enabled() {
		return
	}

	b = b.Str("category", entry.Category).Int("env_id", int(entry.EnvID))
	for k, v := range entry.Fields {
		b = b.Any(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
