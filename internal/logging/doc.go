// Package logging assembles structured slog loggers and formatting helpers used
// across cinebot components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so poll ticks and vote requests
// are tagged with correlation and session IDs. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
