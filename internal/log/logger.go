// Package log provides structured logging for mhwkit using zap.
package log

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with mhwkit-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	if debug {
		InitLevel(zapcore.DebugLevel)
		return
	}
	InitLevel(zapcore.WarnLevel)
}

// InitLevel is Init with an explicit minimum level. Levels at or below debug
// select the development encoder.
func InitLevel(level zapcore.Level) {
	once.Do(func() {
		L = NewLevel(level)
	})
}

// Default returns the global logger, or a no-op logger if Init was never called.
func Default() *Logger {
	if L == nil {
		return NewNop()
	}
	return L
}

// Or returns l, falling back to Default when l is nil.
func Or(l *Logger) *Logger {
	if l == nil {
		return Default()
	}
	return l
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	if debug {
		return NewLevel(zapcore.DebugLevel)
	}
	return NewLevel(zapcore.WarnLevel)
}

// NewLevel creates a Logger that drops entries below level.
func NewLevel(level zapcore.Level) *Logger {
	var cfg zap.Config
	if level <= zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	// Shorter timestamps in development
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fallback to no-op if config fails
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithComponent returns a logger with the component field preset.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("cmp", name))}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Resolved logs a successful address resolution.
func (l *Logger) Resolved(record string, addr uint64, cached bool) {
	l.Debug("resolved",
		zap.String("rec", record),
		Addr(addr),
		zap.Bool("cached", cached),
	)
}

// HookInstall logs when a physical hook is installed at an address.
func (l *Logger) HookInstall(name string, target, original uint64) {
	l.Info("hook installed",
		zap.String("fn", name),
		Addr(target),
		Ptr("orig", original),
	)
}

// Hex formats a uint64 as hex string for logging.
func Hex(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}

// Field helpers for common patterns.

// Addr creates an address field.
func Addr(addr uint64) zap.Field {
	return zap.String("addr", Hex(addr))
}

// Size creates a size field.
func Size(size uint64) zap.Field {
	return zap.Uint64("size", size)
}

// Ptr creates a pointer field.
func Ptr(name string, ptr uint64) zap.Field {
	return zap.String(name, Hex(ptr))
}

// Fn creates a function name field.
func Fn(name string) zap.Field {
	return zap.String("fn", name)
}

// Record creates an address record field.
func Record(name string) zap.Field {
	return zap.String("rec", name)
}

// Pattern creates a byte pattern field from its text form.
func Pattern(text string) zap.Field {
	return zap.String("pattern", text)
}
