package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. Components that want explicit injection
// (the store, the archiver) receive a *zap.Logger in their constructor;
// Log is the instance main wires in and the fallback for package helpers.
var Log *zap.Logger

// Init builds the global logger. Level comes from the argument, falling back
// to COACHCHAT_LOG_LEVEL, defaulting to info. COACHCHAT_LOG_SINK=file:<path>
// redirects output to a file, which the tests use to keep stdout quiet.
func Init(level string) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("COACHCHAT_LOG_LEVEL")))
	}
	var zl zapcore.Level
	switch lvl {
	case "debug":
		zl = zapcore.DebugLevel
	case "warn", "warning":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	default:
		zl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sink := zapcore.Lock(os.Stdout)
	if s := os.Getenv("COACHCHAT_LOG_SINK"); strings.HasPrefix(s, "file:") {
		path := strings.TrimPrefix(s, "file:")
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640); err == nil {
			sink = zapcore.Lock(f)
		}
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zl)
	Log = zap.New(core)
}

// L returns the global logger, or a no-op logger when Init was never called.
// Packages that log through the global use this so tests need no setup.
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// Sync flushes buffered log entries. Safe to call with no logger installed.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }

// Error logs at error level on the global logger.
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
