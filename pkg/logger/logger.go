package logger

import (
	"sync"

	"github.com/theory-cloud/sidecarssr/pkg/observability"
)

var (
	globalMu     sync.RWMutex
	globalLogger observability.StructuredLogger = observability.NewNoOpLogger()
)

// Logger returns the process-wide structured logger used by deployment hooks
// and anything constructed without an explicit logger.
func Logger() observability.StructuredLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the process-wide logger.
//
// Passing nil resets the logger to a no-op implementation.
func SetLogger(next observability.StructuredLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if next == nil {
		globalLogger = observability.NewNoOpLogger()
		return
	}
	globalLogger = next
}

// Or returns l when it is non-nil and the process-wide logger otherwise.
func Or(l observability.StructuredLogger) observability.StructuredLogger {
	if l != nil {
		return l
	}
	return Logger()
}
