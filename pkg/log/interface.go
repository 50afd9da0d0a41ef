// Package log is the structured logging layer of forgeml.
//
// Call sites depend only on Logger. The process-wide backend is zerolog
// (NewZerologProvider), optionally writing through a rotating file
// (NewRotatingWriter). Attribute keys shared by the trainer, storage and
// server layers live in attributes.go.
//
//	logger := log.GetLoggerWithName("trainer").With(log.TargetKey, "yield_pct")
//	logger.Info("model trained",
//	    log.ModelNameKey, "gradient_boosting",
//	    log.R2ScoreKey, 0.91,
//	)
package log

import "context"

// Logger is a leveled key/value logger with the method set of log/slog.
//
// fields alternate key, value. Error and Warn accept an error as the first
// field; it is recorded under "error" together with its stack when the
// error carries one.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted, so expensive
	// fields can be skipped.
	Enabled(ctx context.Context, level Level) bool
}

// Level はログレベル。値はslog.Levelと互換
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates component loggers and owns their level.
type LoggerProvider interface {
	GetLogger() Logger

	// GetLoggerWithName tags the logger with ComponentKey=name.
	GetLoggerWithName(name string) Logger

	SetLevel(level Level)
}
