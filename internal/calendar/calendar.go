package calendar

import (
	"time"

	"github.com/Piravision/Votaciones/internal/state"
)

const dateLayout = "2006-01-02"

// SlotRule assigns an hour of day to a voting window. Hours in
// [DaytimeStart, DaytimeEnd) are daytime; everything else is the night slot.
type SlotRule struct {
	DaytimeStart int
	DaytimeEnd   int
}

// DefaultSlotRule covers 12:00 to 18:59 as daytime.
var DefaultSlotRule = SlotRule{DaytimeStart: 12, DaytimeEnd: 19}

// SlotForHour maps an hour of day to its slot.
func (r SlotRule) SlotForHour(hour int) state.Slot {
	if hour >= r.DaytimeStart && hour < r.DaytimeEnd {
		return state.SlotDaytime
	}
	return state.SlotNightCinema
}

// SlotFor maps a time to its slot.
func (r SlotRule) SlotFor(t time.Time) state.Slot {
	return r.SlotForHour(t.Hour())
}

// DateKey formats a calendar key.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// Archive stores entry at date and slot. A new date starts with both slots
// empty.
func Archive(doc *state.Document, date time.Time, slot state.Slot, entry state.CalendarEntry) {
	if doc.Calendar == nil {
		doc.Calendar = map[string]state.Day{}
	}
	key := DateKey(date)
	day, ok := doc.Calendar[key]
	if !ok || day == nil {
		day = state.Day{}
		for _, s := range state.Slots {
			day[s] = nil
		}
		doc.Calendar[key] = day
	}
	stored := entry
	day[slot] = &stored
}

// Rollover resets the month-scoped parts of the document when now falls in a
// different month than the stored one. The leaderboard is kept.
func Rollover(doc *state.Document, now time.Time) bool {
	month := state.MonthKey(now)
	if doc.Month == month {
		return false
	}
	doc.Month = month
	doc.Calendar = map[string]state.Day{}
	doc.Current = nil
	doc.Votes = state.Ledger{Voters: []state.Vote{}}
	return true
}

// DayView is one rendered calendar day.
type DayView struct {
	Date    time.Time
	Key     string
	Daytime *state.CalendarEntry
	Night   *state.CalendarEntry
}

// MonthDays lists every day of month ("YYYY-MM") with its stored slots.
func MonthDays(doc *state.Document, month string) ([]DayView, error) {
	first, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return nil, err
	}
	last := first.AddDate(0, 1, -1).Day()
	days := make([]DayView, 0, last)
	for d := 1; d <= last; d++ {
		date := first.AddDate(0, 0, d-1)
		view := DayView{Date: date, Key: DateKey(date)}
		if day := doc.Calendar[view.Key]; day != nil {
			view.Daytime = day[state.SlotDaytime]
			view.Night = day[state.SlotNightCinema]
		}
		days = append(days, view)
	}
	return days, nil
}
