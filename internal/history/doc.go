// Package history keeps a SQLite archive of every closed session so past
// months remain queryable after the state document rolls over.
package history
