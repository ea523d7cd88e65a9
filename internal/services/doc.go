// Package services defines shared utilities consumed by the poll loop, the vote
// handler, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp correlation and voting session identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (input, state, lookup, validation, publish) so every caller logs them
//     the same way and none of them stops the loop.
package services
