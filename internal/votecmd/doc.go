// Package votecmd registers a single vote for the chat integration. The reply
// line is written to the response file and every attempt is appended to the
// trace file.
package votecmd
