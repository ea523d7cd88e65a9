// Package daemon runs the poll loop and the optional vote API as one
// long-lived process.
//
// A flock on the log directory keeps a second loop from starting against
// the same state document, which would archive every session twice.
package daemon
