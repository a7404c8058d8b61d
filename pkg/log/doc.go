// Package log provides structured, context-aware logging for the Turnkey
// client and the programs built on top of it.
//
// The package is built around the Logger interface. Two implementations are
// provided:
//
//   - ZapLogger: production logger backed by Uber's zap
//   - NoopLogger: discards everything, the default in tests
//
// # Basic Usage
//
//	logger := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelInfo})
//	logger.Info("client ready", "organization", orgID)
//
// Derived loggers carry persistent context:
//
//	pollLogger := logger.WithName("poller").WithKV("activityId", id)
//
// # Context Integration
//
// Loggers travel through context.Context so that library code can pick up
// the caller's logger without global state:
//
//	ctx = log.ContextWithLogger(ctx, logger)
//	log.FromContext(ctx).Debug("submitting activity")
//
// When the context carries a valid OpenTelemetry span, FromContext enriches
// the logger with the trace and span ids so log lines can be correlated with
// traces.
//
// # Environment Configuration
//
// Config reads its fields from the environment via cleanenv struct tags:
//
//   - LOG_FORMAT: console, logfmt or json
//   - LOG_LEVEL: debug, info, warn or error
//   - LOG_OUTPUT: stderr, stdout or a file path
package log
