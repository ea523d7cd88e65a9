package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Piravision/Votaciones/internal/calendar"
	"github.com/Piravision/Votaciones/internal/fileutil"
	"github.com/Piravision/Votaciones/internal/ledger"
	"github.com/Piravision/Votaciones/internal/state"
)

//go:embed templates/calendar.html.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/calendar.html.tmpl"

// LeaderboardSize is how many voters the page lists.
const LeaderboardSize = 10

var (
	spanishMonths = [...]string{
		"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
	}
	spanishWeekdays = [...]string{
		"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
	}
)

// capitalize upper-cases the first letter. Casers are stateful, so each call
// gets its own.
func capitalize(s string) string {
	return cases.Title(language.Spanish).String(s)
}

// MonthName returns the capitalized Spanish name of m.
func MonthName(m time.Month) string {
	return capitalize(spanishMonths[m-1])
}

// WeekdayName returns the capitalized Spanish name of d.
func WeekdayName(d time.Weekday) string {
	return capitalize(spanishWeekdays[d])
}

// View is everything the page shows.
type View struct {
	Year        int
	MonthName   string
	Days        []DayView
	Leaderboard []LeaderRow
	NowPlaying  *NowPlaying
}

// DayView is one calendar cell.
type DayView struct {
	Date    string
	Number  int
	DayName string
	Slots   []SlotView
}

// SlotView is one slot of a day; Entry is nil when nothing was archived.
type SlotView struct {
	Slot  state.Slot
	Label string
	Entry *state.CalendarEntry
}

// LeaderRow is one leaderboard line.
type LeaderRow struct {
	Voter string
	Count int
}

// NowPlaying describes the open session.
type NowPlaying struct {
	Title     string
	Year      string
	PosterURL string
	Slot      string
	Votes     int
	Average   float64
}

// BuildView projects the document onto the page model for its stored month.
func BuildView(doc *state.Document) (View, error) {
	first, err := time.ParseInLocation("2006-01", doc.Month, time.Local)
	if err != nil {
		return View{}, fmt.Errorf("parse calendar month %q: %w", doc.Month, err)
	}
	days, err := calendar.MonthDays(doc, doc.Month)
	if err != nil {
		return View{}, err
	}

	view := View{
		Year:        first.Year(),
		MonthName:   MonthName(first.Month()),
		Days:        make([]DayView, 0, len(days)),
		Leaderboard: TopVoters(doc.Leaderboard, LeaderboardSize),
	}
	for _, d := range days {
		view.Days = append(view.Days, DayView{
			Date:    d.Key,
			Number:  d.Date.Day(),
			DayName: WeekdayName(d.Date.Weekday()),
			Slots: []SlotView{
				{Slot: state.SlotDaytime, Label: string(state.SlotDaytime), Entry: d.Daytime},
				{Slot: state.SlotNightCinema, Label: string(state.SlotNightCinema), Entry: d.Night},
			},
		})
	}
	if doc.HasActiveSession() {
		view.NowPlaying = &NowPlaying{
			Title:     doc.Current.Title,
			Year:      doc.Current.Year,
			PosterURL: doc.Current.PosterURL,
			Slot:      string(doc.Current.TimeSlot),
			Votes:     doc.Votes.NumVotes,
			Average:   ledger.Average(doc.Votes),
		}
	}
	return view, nil
}

// TopVoters orders the leaderboard by descending count, breaking ties
// alphabetically, and keeps at most limit rows.
func TopVoters(counts map[string]int, limit int) []LeaderRow {
	rows := make([]LeaderRow, 0, len(counts))
	for voter, count := range counts {
		rows = append(rows, LeaderRow{Voter: voter, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Voter < rows[j].Voter
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Renderer executes the calendar page template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded template, or the file at overridePath when set.
func New(overridePath string) (*Renderer, error) {
	tmpl := template.New("calendar").Funcs(template.FuncMap{
		"rating": formatRating,
		"inc":    func(i int) int { return i + 1 },
	})

	overridePath = strings.TrimSpace(overridePath)
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", overridePath, err)
		}
		parsed, err := tmpl.Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", overridePath, err)
		}
		return &Renderer{tmpl: parsed}, nil
	}

	data, err := templateFS.ReadFile(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("read embedded template: %w", err)
	}
	parsed, err := tmpl.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse embedded template: %w", err)
	}
	return &Renderer{tmpl: parsed}, nil
}

// Render produces the page. Equal views render to identical bytes.
func (r *Renderer) Render(view View) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderDocument builds the view for doc and renders it.
func (r *Renderer) RenderDocument(doc *state.Document) ([]byte, error) {
	view, err := BuildView(doc)
	if err != nil {
		return nil, err
	}
	return r.Render(view)
}

// WriteFile renders doc and replaces path atomically.
func (r *Renderer) WriteFile(doc *state.Document, path string) error {
	html, err := r.RenderDocument(doc)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, html, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
