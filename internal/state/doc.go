// Package state owns the persisted voting document: the current session, its
// vote ledger, the monthly calendar, and the global leaderboard.
//
// The document is a single JSON file. Every reader and writer goes through
// Store, which serializes access across processes with an advisory lock file
// and replaces the document atomically on each write.
package state
