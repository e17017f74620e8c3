// Package logging assembles the structured slog loggers used across popcorn.
//
// It owns the console/JSON handler configuration, centralizes level and
// output plumbing, and exposes context-aware helpers so engine code can
// automatically tag log lines with record, contribution, and correlation
// identifiers. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
