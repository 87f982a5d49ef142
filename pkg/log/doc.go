// Package log provides devlog's structured logging facade for host-side
// processes (server, CLI, storage).
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by log/slog via
// a custom handler that feeds a Formatter and a set of Outputs. The levels
// match the device severities (debug, info, warn, error, critical) so a
// device entry can be mirrored at the same severity.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"), log.Str("log", "app"))
//	l.Info("server started", log.Int("port", 7070))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config, selecting text or
// JSON output, a destination, key redaction and per-message sampling.
//
// # Interop
//
// Libraries that expect a *log.Logger can be given ToStdLogger, and
// RedirectStdLog captures the global standard logger.
package log
