// Package poller runs the long-lived loop that watches the now-playing file.
//
// Each tick resets the calendar on a month change, then compares the file
// against the last line it processed. A new line closes the previous session
// into the calendar, resolves the new title, opens a fresh vote ledger, and
// regenerates and publishes the page.
package poller
