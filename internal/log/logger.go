// Package log provides structured logging for the fix plugin using zap.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with fix-lifecycle helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger writing to the given file path.
// Safe to call multiple times; only the first call takes effect.
func Init(path string, debug bool) {
	once.Do(func() {
		L = New(path, debug)
	})
}

// New creates a new Logger appending to the file at path. An empty path
// logs to stderr, which is what the companion tools want.
func New(path string, debug bool) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}

	logger, err := cfg.Build()
	if err != nil {
		// The engine must keep working unlogged rather than abort the host.
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FixInstalled logs a successful hook installation for a fix.
func (l *Logger) FixInstalled(fix string, addr uintptr) {
	l.Info("fix installed", zap.String("fix", fix), Addr(addr))
}

// FixDisabled logs a fix skipped by configuration.
func (l *Logger) FixDisabled(fix string) {
	l.Info("fix disabled", zap.String("fix", fix))
}

// FixNotFound logs a fix whose signature did not match the image.
func (l *Logger) FixNotFound(fix string) {
	l.Warn("fix signature not found", zap.String("fix", fix))
}

// FixFailed logs a fix whose hook could not be installed.
func (l *Logger) FixFailed(fix string, err error) {
	l.Warn("fix install failed", zap.String("fix", fix), zap.Error(err))
}

// Addr creates an address field rendered as hex.
func Addr(addr uintptr) zap.Field {
	return zap.String("addr", Hex(uint64(addr)))
}

// Hex formats a uint64 as a 0x-prefixed hex string for logging.
func Hex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0x0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return "0x" + string(buf[i:])
}
