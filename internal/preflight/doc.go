// Package preflight validates the environment before the poll loop starts:
// directory permissions, TMDB credentials, and git for publishing.
package preflight
