package testutil

import (
	"sync"

	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
)

// Entry is one log record captured by a RecordingLogger.
type Entry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// RecordingLogger implements logging.Logger and captures every entry for
// later inspection.  With and Named return children that share the parent's
// sink, so one recorder observes a whole logger tree.  Fatal records instead
// of exiting, so a test can survive exercising a fatal path.
type RecordingLogger struct {
	sink  *entrySink
	name  string
	bound []logging.Field
}

var _ logging.Logger = (*RecordingLogger)(nil)

type entrySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecordingLogger returns an empty recorder.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &entrySink{}}
}

func (l *RecordingLogger) record(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(l.bound)+len(fields))
	all = append(all, l.bound...)
	all = append(all, fields...)
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, Entry{
		Level:   level,
		Logger:  l.name,
		Message: msg,
		Fields:  all,
	})
}

func (l *RecordingLogger) Debug(msg string, fields ...logging.Field) { l.record("debug", msg, fields) }
func (l *RecordingLogger) Info(msg string, fields ...logging.Field)  { l.record("info", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...logging.Field)  { l.record("warn", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...logging.Field) { l.record("error", msg, fields) }
func (l *RecordingLogger) Fatal(msg string, fields ...logging.Field) { l.record("fatal", msg, fields) }

// With returns a child that prepends fields to every entry it records.
func (l *RecordingLogger) With(fields ...logging.Field) logging.Logger {
	child := *l
	child.bound = append(append([]logging.Field(nil), l.bound...), fields...)
	return &child
}

// Named returns a child whose entries carry the period-joined name chain.
func (l *RecordingLogger) Named(name string) logging.Logger {
	child := *l
	if l.name == "" {
		child.name = name
	} else {
		child.name = l.name + "." + name
	}
	return &child
}

// Entries returns a copy of everything recorded so far, in order.
func (l *RecordingLogger) Entries() []Entry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	out := make([]Entry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// Has reports whether an entry with the given level and message was recorded
// anywhere in the logger tree.
func (l *RecordingLogger) Has(level, msg string) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	for _, e := range l.sink.entries {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// Reset discards everything recorded so far.
func (l *RecordingLogger) Reset() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = l.sink.entries[:0]
}
