package log

// Logger is the logging interface accepted throughout the module.
type Logger interface {
	// Debug logs low-level details useful during development.
	// keysAndValues adds structured context (e.g., "activityId", id).
	Debug(msg string, keysAndValues ...any)
	// Info logs routine progress and state changes.
	Info(msg string, keysAndValues ...any)
	// Warn logs unexpected situations the caller can recover from.
	Warn(msg string, keysAndValues ...any)
	// Error logs failures that prevent an operation from completing.
	Error(msg string, keysAndValues ...any)
	// WithKV returns a logger that attaches the key-value pair to all
	// future log entries.
	WithKV(key string, value any) Logger
	// WithName returns a logger with the given name appended to the
	// logger's dot-separated name hierarchy.
	WithName(name string) Logger
	// Name returns the logger's name.
	Name() string
	// AddCallerSkip returns a logger that skips extra stack frames when
	// reporting the log call site. Use when wrapping the logger in helpers.
	AddCallerSkip(skip int) Logger
}

// Level represents the severity of a log message.
type Level string

const (
	// LevelDebug is the most verbose level.
	LevelDebug Level = "debug"
	// LevelInfo is used for informational messages.
	LevelInfo Level = "info"
	// LevelWarn is used for potential issues.
	LevelWarn Level = "warn"
	// LevelError is used for failures.
	LevelError Level = "error"
)
