// Package notifications pushes movie-night events to an ntfy topic.
//
// A closed session announces its final rating; a failed publish raises an
// alert so the operator knows the public page is stale. When no topic is
// configured NewService returns a no-op implementation, so callers never
// need to check whether notifications are enabled.
package notifications
