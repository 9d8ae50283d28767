// Package logging assembles the structured slog loggers used by the CLI and
// the nightly pipeline.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys, and WARN/ERROR helpers that guarantee every warning
// carries an event type, an impact statement and a hint for the operator.
// A no-op logger is provided for tests and for wiring code that cannot fail.
package logging
