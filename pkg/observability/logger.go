package observability

import (
	"context"
	"time"
)

type SanitizerFunc func(key string, value any) any

// ErrorNotifier receives error-level entries out of band (for example SNS).
type ErrorNotifier interface {
	Notify(ctx context.Context, entry LogEntry) error
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`

	DispatchID string `json:"dispatch_id,omitempty"`
	Function   string `json:"function,omitempty"`
}

// StructuredLogger is the logging surface shared by the gateway, the function
// descriptors and the CLI: a message plus optional map fields.
type StructuredLogger interface {
	Debug(message string, fields ...map[string]any)
	Info(message string, fields ...map[string]any)
	Warn(message string, fields ...map[string]any)
	Error(message string, fields ...map[string]any)

	WithField(key string, value any) StructuredLogger
	WithFields(fields map[string]any) StructuredLogger

	// WithDispatchID scopes entries to a single SSR dispatch.
	WithDispatchID(dispatchID string) StructuredLogger
	// WithFunction scopes entries to a deployed function name.
	WithFunction(name string) StructuredLogger

	Flush(ctx context.Context) error
	Close() error
	IsHealthy() bool
}

// LoggerConfig configures logger implementations.
type LoggerConfig struct {
	Format       string `json:"format" yaml:"format"`
	Level        string `json:"level" yaml:"level"`
	BufferSize   int    `json:"buffer_size" yaml:"buffer_size"`
	EnableStack  bool   `json:"enable_stack" yaml:"enable_stack"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller"`
}

func mergeFields(base map[string]any, sets ...map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
