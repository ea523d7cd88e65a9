package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// Slot names one of the two daily voting windows. The values double as the
// calendar keys in the persisted document.
type Slot string

const (
	SlotDaytime     Slot = "Sobremesa"
	SlotNightCinema Slot = "Noche de Cine"
)

// Slots lists both windows in display order.
var Slots = []Slot{SlotDaytime, SlotNightCinema}

// TitleRecord is the resolved metadata for a playing title.
type TitleRecord struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	TMDBID    *int64 `json:"tmdb_id"`
	PosterURL string `json:"poster_url"`
}

// Session is the currently playing, vote-accepting title.
type Session struct {
	TitleRecord
	TimeSlot   Slot      `json:"time_slot"`
	StartTime  Timestamp `json:"start_time"`
	SessionID  string    `json:"session_id,omitempty"`
	SourceText string    `json:"source_text,omitempty"`
}

// Vote is a single accepted rating.
type Vote struct {
	User      string    `json:"user"`
	Score     float64   `json:"score"`
	Timestamp Timestamp `json:"timestamp"`
}

// UnmarshalJSON accepts the object form and the older bare voter-name form.
func (v *Vote) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*v = Vote{User: name}
		return nil
	}
	type plain Vote
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*v = Vote(decoded)
	return nil
}

// Ledger accumulates votes for the active session.
type Ledger struct {
	TotalScore float64 `json:"total_score"`
	NumVotes   int     `json:"num_votes"`
	Voters     []Vote  `json:"voters"`
}

// CalendarEntry is an archived session. Written once, never mutated.
type CalendarEntry struct {
	Title       string  `json:"title"`
	Year        string  `json:"year"`
	PosterURL   string  `json:"poster_url"`
	FinalRating float64 `json:"final_rating"`
	TMDBID      *int64  `json:"tmdb_id"`
}

// Day holds both slots of one calendar date. A nil entry is an empty slot.
type Day map[Slot]*CalendarEntry

// Document is the whole persisted state.
type Document struct {
	Month       string         `json:"current_calendar_month"`
	Current     *Session       `json:"current_movie_info"`
	Votes       Ledger         `json:"votes_for_current_movie"`
	Calendar    map[string]Day `json:"calendar"`
	Leaderboard map[string]int `json:"global_user_votes"`
}

// MarshalJSON writes an idle session as an empty object, the shape older
// readers of the document expect.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	out := struct {
		plain
		Current any `json:"current_movie_info"`
	}{plain: plain(d), Current: struct{}{}}
	if d.Current != nil {
		out.Current = d.Current
	}
	return json.Marshal(out)
}

// HasActiveSession reports whether a title is open for voting.
func (d *Document) HasActiveSession() bool {
	return d != nil && d.Current != nil && d.Current.Title != ""
}

// Timestamp is a time.Time that also accepts ISO-8601 values without a zone
// offset, interpreted in local time.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if string(data) == "null" {
			*t = Timestamp{}
			return nil
		}
		return err
	}
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*t = Timestamp{Time: parsed}
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			*t = Timestamp{Time: parsed}
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", raw)
}
