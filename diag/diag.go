// Package diag provides the diagnostic logger guards report through.
//
// The default logger is bound to the process stderr as it was when the package was
// initialised, so diagnostics keep flowing even while a sandbox has trapped the
// standard streams.
package diag

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var originalStderr = os.Stderr

// New builds a console logger writing to w.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(consoleCore)
}

var defaultLogger = sync.OnceValue(func() *zap.Logger {
	return New(originalStderr, zap.DebugLevel).Named("purity")
})

// AtLevel builds a logger like Default that drops entries below level.
func AtLevel(level zapcore.Level) *zap.Logger {
	return New(originalStderr, level).Named("purity")
}

// Default returns the process-wide diagnostic logger.
func Default() *zap.Logger {
	return defaultLogger()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
