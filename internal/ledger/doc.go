// Package ledger implements the vote bookkeeping for the active session:
// validating and recording votes, and closing a session into a calendar entry
// while crediting the lifetime leaderboard.
package ledger
