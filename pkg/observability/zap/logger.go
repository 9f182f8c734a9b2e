package zap

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theory-cloud/sidecarssr"
	"github.com/theory-cloud/sidecarssr/pkg/observability"
	"github.com/theory-cloud/sidecarssr/pkg/sanitization"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"
)

const defaultBufferSize = 64

type Option func(*loggerOptions)

type loggerOptions struct {
	initErr error

	zapLogger *ubzap.Logger
	sanitizer observability.SanitizerFunc
	notifier  observability.ErrorNotifier
}

func WithZapLogger(logger *ubzap.Logger) Option {
	return func(opts *loggerOptions) {
		opts.zapLogger = logger
	}
}

func WithSanitizer(fn observability.SanitizerFunc) Option {
	return func(opts *loggerOptions) {
		opts.sanitizer = fn
	}
}

func WithErrorNotifier(notifier observability.ErrorNotifier) Option {
	return func(opts *loggerOptions) {
		opts.notifier = notifier
	}
}

type zapCore struct {
	logger    *ubzap.Logger
	sanitizer observability.SanitizerFunc
	notifier  observability.ErrorNotifier

	notifyMu sync.Mutex
	notifyCh chan observability.LogEntry
	notifyWg sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool

	dropped   atomic.Int64
	lastError atomic.Value
}

// Logger implements observability.StructuredLogger on top of zap.
type Logger struct {
	core *zapCore
	log  *ubzap.Logger

	fields     map[string]any
	dispatchID string
	function   string
}

var _ observability.StructuredLogger = (*Logger)(nil)

// NewZapLogger builds a zap-backed structured logger. Inside Lambda the
// default format is JSON, elsewhere it is the console encoder.
func NewZapLogger(config observability.LoggerConfig, options ...Option) (*Logger, error) {
	cfg := normalizeLoggerConfig(config)

	opts := &loggerOptions{sanitizer: sanitization.SanitizeFieldValue}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}
	if opts.initErr != nil {
		return nil, opts.initErr
	}

	base := opts.zapLogger
	if base == nil {
		level, err := parseZapLevel(cfg.Level)
		if err != nil {
			return nil, err
		}

		enc := zapEncoderConfig(cfg.EnableCaller)
		var encoder zapcore.Encoder
		switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
		case "console":
			encoder = zapcore.NewConsoleEncoder(enc)
		case "json":
			encoder = zapcore.NewJSONEncoder(enc)
		default:
			return nil, errors.New("observability/zap: unsupported log format")
		}

		base = ubzap.New(zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
		if cfg.EnableCaller {
			base = base.WithOptions(ubzap.AddCaller())
		}
		if cfg.EnableStack {
			base = base.WithOptions(ubzap.AddStacktrace(zapcore.ErrorLevel))
		}
	}

	zcore := &zapCore{
		logger:    base,
		sanitizer: opts.sanitizer,
		notifier:  opts.notifier,
	}
	zcore.lastError.Store("")

	if zcore.notifier != nil {
		zcore.notifyCh = make(chan observability.LogEntry, cfg.BufferSize)
		go zcore.runNotifier(zcore.notifyCh)
	}

	return &Logger{
		core:   zcore,
		log:    base,
		fields: map[string]any{},
	}, nil
}

func normalizeLoggerConfig(config observability.LoggerConfig) observability.LoggerConfig {
	cfg := config
	if strings.TrimSpace(cfg.Format) == "" {
		if sidecarssr.IsLambda() {
			cfg.Format = "json"
		} else {
			cfg.Format = "console"
		}
	}
	if strings.TrimSpace(cfg.Level) == "" {
		cfg.Level = levelInfo
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return cfg
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case levelDebug:
		return zapcore.DebugLevel, nil
	case levelInfo, "":
		return zapcore.InfoLevel, nil
	case levelWarn, "warning":
		return zapcore.WarnLevel, nil
	case levelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, errors.New("observability/zap: unsupported log level")
	}
}

func zapEncoderConfig(enableCaller bool) zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if enableCaller {
		enc.CallerKey = "caller"
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	}
	return enc
}

func (l *Logger) Debug(message string, fields ...map[string]any) {
	l.logEntry(levelDebug, message, fields...)
}
func (l *Logger) Info(message string, fields ...map[string]any) {
	l.logEntry(levelInfo, message, fields...)
}
func (l *Logger) Warn(message string, fields ...map[string]any) {
	l.logEntry(levelWarn, message, fields...)
}
func (l *Logger) Error(message string, fields ...map[string]any) {
	l.logEntry(levelError, message, fields...)
}

func (l *Logger) WithField(key string, value any) observability.StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *Logger) WithFields(fields map[string]any) observability.StructuredLogger {
	next := l.clone()
	for k, v := range fields {
		next.fields[k] = v
	}
	next.log = next.log.With(zapFields(fields, l.core.sanitizer)...)
	return next
}

func (l *Logger) WithDispatchID(dispatchID string) observability.StructuredLogger {
	next := l.clone()
	next.dispatchID = dispatchID
	next.log = next.log.With(ubzap.String("dispatch_id", sanitization.SanitizeLogString(dispatchID)))
	return next
}

func (l *Logger) WithFunction(name string) observability.StructuredLogger {
	next := l.clone()
	next.function = name
	next.log = next.log.With(ubzap.String("function", sanitization.SanitizeLogString(name)))
	return next
}

// Flush syncs zap and waits for queued notifications or ctx, whichever is first.
func (l *Logger) Flush(ctx context.Context) error {
	if l == nil || l.core == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := l.core.logger.Sync()
	if err != nil {
		l.core.lastError.Store(err.Error())
	}
	l.core.waitNotifier(ctx)
	return err
}

func (l *Logger) Close() error {
	if l == nil || l.core == nil {
		return nil
	}
	return l.core.close()
}

func (l *Logger) IsHealthy() bool {
	if l == nil || l.core == nil || l.core.closed.Load() {
		return false
	}
	return l.core.lastErrorString() == ""
}

// Dropped reports how many error notifications were discarded because the
// notification buffer was full or the logger was closed.
func (l *Logger) Dropped() int64 {
	if l == nil || l.core == nil {
		return 0
	}
	return l.core.dropped.Load()
}

func (l *Logger) clone() *Logger {
	nextFields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		nextFields[k] = v
	}
	return &Logger{
		core:       l.core,
		log:        l.log,
		fields:     nextFields,
		dispatchID: l.dispatchID,
		function:   l.function,
	}
}

func (l *Logger) logEntry(level string, message string, fields ...map[string]any) {
	if l == nil || l.core == nil || l.log == nil || l.core.closed.Load() {
		return
	}

	message = sanitization.SanitizeLogString(message)
	callFields := mergeFieldSets(fields...)

	zf := zapFields(callFields, l.core.sanitizer)
	switch level {
	case levelDebug:
		l.log.Debug(message, zf...)
	case levelWarn:
		l.log.Warn(message, zf...)
	case levelError:
		l.log.Error(message, zf...)
	default:
		l.log.Info(message, zf...)
	}

	if level == levelError && l.core.notifier != nil {
		l.core.enqueue(observability.LogEntry{
			Timestamp:  time.Now(),
			Level:      level,
			Message:    message,
			Fields:     sanitizeFields(mergeFieldSets(l.fields, callFields), l.core.sanitizer),
			DispatchID: l.dispatchID,
			Function:   l.function,
		})
	}
}

func zapFields(fields map[string]any, sanitizerFn observability.SanitizerFunc) []ubzap.Field {
	if len(fields) == 0 {
		return nil
	}
	sanitized := sanitizeFields(fields, sanitizerFn)
	out := make([]ubzap.Field, 0, len(sanitized))
	for k, v := range sanitized {
		out = append(out, ubzap.Any(k, v))
	}
	return out
}

func sanitizeFields(fields map[string]any, sanitizerFn observability.SanitizerFunc) map[string]any {
	if sanitizerFn == nil {
		sanitizerFn = sanitization.SanitizeFieldValue
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = sanitizerFn(k, v)
	}
	return out
}

func mergeFieldSets(fieldSets ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, set := range fieldSets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

func (c *zapCore) enqueue(entry observability.LogEntry) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.closed.Load() || c.notifyCh == nil {
		c.dropped.Add(1)
		return
	}

	c.notifyWg.Add(1)
	select {
	case c.notifyCh <- entry:
	default:
		c.notifyWg.Done()
		c.dropped.Add(1)
	}
}

func (c *zapCore) runNotifier(ch <-chan observability.LogEntry) {
	for entry := range ch {
		if err := c.notifier.Notify(context.Background(), entry); err != nil {
			c.lastError.Store(err.Error())
		}
		c.notifyWg.Done()
	}
}

func (c *zapCore) waitNotifier(ctx context.Context) {
	if c.notifier == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		c.notifyWg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

func (c *zapCore) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.notifyMu.Lock()
		c.closed.Store(true)
		if c.notifyCh != nil {
			close(c.notifyCh)
			c.notifyCh = nil
		}
		c.notifyMu.Unlock()

		c.notifyWg.Wait()
		err = c.logger.Sync()
	})
	return err
}

func (c *zapCore) lastErrorString() string {
	lastError, ok := c.lastError.Load().(string)
	if !ok {
		return ""
	}
	return lastError
}
