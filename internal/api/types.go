package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Status describes the open session.
type Status struct {
	Month    string   `json:"month"`
	Active   bool     `json:"active"`
	Session  *Session `json:"session,omitempty"`
	NumVotes int      `json:"numVotes"`
	Average  float64  `json:"average"`
}

// Session is the transport form of the open session.
type Session struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	TMDBID    *int64 `json:"tmdbId,omitempty"`
	PosterURL string `json:"posterUrl,omitempty"`
	Slot      string `json:"slot"`
	StartedAt string `json:"startedAt,omitempty"`
}

// LeaderboardEntry is one voter's lifetime participation.
type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Voter string `json:"voter"`
	Count int    `json:"count"`
}

// LeaderboardResponse lists voters in ranking order.
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// VoteRequest is the body of POST /api/votes.
type VoteRequest struct {
	Voter string `json:"voter"`
	Score string `json:"score"`
}

// VoteResponse mirrors the reply written for the chat integration.
type VoteResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}
