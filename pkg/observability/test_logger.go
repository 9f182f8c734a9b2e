package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theory-cloud/sidecarssr/pkg/sanitization"
)

type testLoggerCore struct {
	mu      sync.Mutex
	entries []LogEntry
	flushes atomic.Int64
}

// TestLogger is an in-memory logger for deterministic unit tests.
//
// Derived loggers (via With* calls) share the same underlying entries.
type TestLogger struct {
	core *testLoggerCore

	fields     map[string]any
	dispatchID string
	function   string

	closed *atomic.Bool
}

var _ StructuredLogger = (*TestLogger)(nil)

func NewTestLogger() *TestLogger {
	return &TestLogger{
		core:   &testLoggerCore{},
		fields: map[string]any{},
		closed: &atomic.Bool{},
	}
}

// Entries returns a copy of everything logged so far.
func (l *TestLogger) Entries() []LogEntry {
	if l == nil || l.core == nil {
		return nil
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	out := make([]LogEntry, len(l.core.entries))
	copy(out, l.core.entries)
	return out
}

// EntriesWithMessage filters Entries by exact message.
func (l *TestLogger) EntriesWithMessage(message string) []LogEntry {
	var out []LogEntry
	for _, entry := range l.Entries() {
		if entry.Message == message {
			out = append(out, entry)
		}
	}
	return out
}

func (l *TestLogger) Flushes() int64 {
	if l == nil || l.core == nil {
		return 0
	}
	return l.core.flushes.Load()
}

func (l *TestLogger) Debug(message string, fields ...map[string]any) {
	l.log("debug", message, fields...)
}
func (l *TestLogger) Info(message string, fields ...map[string]any) {
	l.log("info", message, fields...)
}
func (l *TestLogger) Warn(message string, fields ...map[string]any) {
	l.log("warn", message, fields...)
}
func (l *TestLogger) Error(message string, fields ...map[string]any) {
	l.log("error", message, fields...)
}

func (l *TestLogger) WithField(key string, value any) StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *TestLogger) WithFields(fields map[string]any) StructuredLogger {
	next := l.clone()
	next.fields = mergeFields(next.fields, fields)
	return next
}

func (l *TestLogger) WithDispatchID(dispatchID string) StructuredLogger {
	next := l.clone()
	next.dispatchID = dispatchID
	return next
}

func (l *TestLogger) WithFunction(name string) StructuredLogger {
	next := l.clone()
	next.function = name
	return next
}

func (l *TestLogger) Flush(ctx context.Context) error {
	if l == nil || l.core == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.core.flushes.Add(1)
	return nil
}

func (l *TestLogger) Close() error {
	if l == nil || l.closed == nil {
		return nil
	}
	l.closed.Store(true)
	return nil
}

func (l *TestLogger) IsHealthy() bool {
	return l != nil && l.core != nil && !l.closed.Load()
}

func (l *TestLogger) clone() *TestLogger {
	if l == nil {
		return NewTestLogger()
	}
	return &TestLogger{
		core:       l.core,
		fields:     mergeFields(l.fields),
		dispatchID: l.dispatchID,
		function:   l.function,
		closed:     l.closed,
	}
}

func (l *TestLogger) log(level string, message string, fields ...map[string]any) {
	if l == nil || l.core == nil || l.closed.Load() {
		return
	}

	all := mergeFields(l.fields, fields...)
	sanitized := make(map[string]any, len(all))
	for k, v := range all {
		sanitized[k] = sanitization.SanitizeFieldValue(k, v)
	}

	entry := LogEntry{
		Timestamp:  time.Now(),
		Level:      level,
		Message:    sanitization.SanitizeLogString(message),
		Fields:     sanitized,
		DispatchID: l.dispatchID,
		Function:   l.function,
	}

	l.core.mu.Lock()
	l.core.entries = append(l.core.entries, entry)
	l.core.mu.Unlock()
}
