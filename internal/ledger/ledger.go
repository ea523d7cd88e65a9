package ledger

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Piravision/Votaciones/internal/state"
)

// Reason classifies a vote attempt.
type Reason string

const (
	ReasonAccepted  Reason = "accepted"
	ReasonClosed    Reason = "voting closed"
	ReasonFormat    Reason = "invalid format"
	ReasonRange     Reason = "out of range"
	ReasonDuplicate Reason = "duplicate vote"
)

const (
	MinScore = 0.0
	MaxScore = 10.0
)

var scorePattern = regexp.MustCompile(`^\d+([.,]\d+)?$`)

// Outcome is the result of one vote attempt. Message is the single line
// returned to the chat integration.
type Outcome struct {
	Accepted bool
	Reason   Reason
	Score    float64
	Message  string
}

// CastVote validates a vote against the active session and appends it when
// every check passes. Rejected votes never touch the ledger.
func CastVote(doc *state.Document, voter, rawScore string, now time.Time) Outcome {
	voter = strings.TrimSpace(voter)
	rawScore = strings.TrimSpace(rawScore)

	if !doc.HasActiveSession() {
		return Outcome{
			Reason:  ReasonClosed,
			Message: "No hay ninguna película en emisión, la votación está cerrada.",
		}
	}
	title := doc.Current.Title

	if voter == "" || !scorePattern.MatchString(rawScore) {
		return Outcome{
			Reason:  ReasonFormat,
			Message: fmt.Sprintf("@%s, formato no válido. Usa un número del 0 al 10, por ejemplo: !voto 7.5", voter),
		}
	}
	// An overflowing decimal parses to +Inf with ErrRange and is reported as
	// out of range below.
	score, err := strconv.ParseFloat(strings.Replace(rawScore, ",", ".", 1), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Outcome{
			Reason:  ReasonFormat,
			Message: fmt.Sprintf("@%s, formato no válido. Usa un número del 0 al 10, por ejemplo: !voto 7.5", voter),
		}
	}
	if score < MinScore || score > MaxScore {
		return Outcome{
			Reason:  ReasonRange,
			Message: fmt.Sprintf("@%s, la puntuación debe estar entre 0 y 10.", voter),
		}
	}
	if HasVoted(doc.Votes, voter) {
		return Outcome{
			Reason:  ReasonDuplicate,
			Message: fmt.Sprintf("@%s, ya has votado por %s.", voter, title),
		}
	}

	doc.Votes.Voters = append(doc.Votes.Voters, state.Vote{
		User:      voter,
		Score:     score,
		Timestamp: state.NewTimestamp(now),
	})
	doc.Votes.TotalScore += score
	doc.Votes.NumVotes++

	return Outcome{
		Accepted: true,
		Reason:   ReasonAccepted,
		Score:    score,
		Message:  fmt.Sprintf("@%s, tu voto de %s para %s ha sido registrado.", voter, FormatScore(score), title),
	}
}

// HasVoted reports whether voter already appears in the ledger, ignoring case.
func HasVoted(l state.Ledger, voter string) bool {
	key := VoterKey(voter)
	for _, v := range l.Voters {
		if VoterKey(v.User) == key {
			return true
		}
	}
	return false
}

// VoterKey is the identity used for duplicate checks and leaderboard counts.
func VoterKey(voter string) string {
	return strings.ToLower(strings.TrimSpace(voter))
}

// CloseSession finalizes the active session into a calendar entry and credits
// every distinct voter once on the leaderboard. The ledger itself is left
// untouched; callers reset it when the next session opens.
func CloseSession(doc *state.Document) state.CalendarEntry {
	entry := state.CalendarEntry{FinalRating: Average(doc.Votes)}
	if doc.Current != nil {
		entry.Title = doc.Current.Title
		entry.Year = doc.Current.Year
		entry.PosterURL = doc.Current.PosterURL
		entry.TMDBID = doc.Current.TMDBID
	}

	if doc.Leaderboard == nil {
		doc.Leaderboard = map[string]int{}
	}
	seen := make(map[string]struct{}, len(doc.Votes.Voters))
	for _, v := range doc.Votes.Voters {
		key := VoterKey(v.User)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		doc.Leaderboard[key]++
	}
	return entry
}

// Reset empties the ledger.
func Reset(doc *state.Document) {
	doc.Votes = state.Ledger{Voters: []state.Vote{}}
}

// Average is total/count rounded to two decimals, or 0 with no votes.
func Average(l state.Ledger) float64 {
	if l.NumVotes <= 0 {
		return 0
	}
	return math.Round(l.TotalScore/float64(l.NumVotes)*100) / 100
}

// FormatScore prints a score without trailing zeros.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
