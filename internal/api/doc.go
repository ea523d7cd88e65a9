// Package api serves the optional HTTP surface of the poll process: a health
// probe, the open session, the leaderboard, and vote registration through the
// same handler the register_vote command uses.
package api
