package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Piravision/Votaciones/internal/calendar"
	"github.com/Piravision/Votaciones/internal/state"
)

func sampleDoc() *state.Document {
	doc := state.New(time.Date(2025, 5, 1, 12, 0, 0, 0, time.Local))
	doc.Month = "2025-05"
	calendar.Archive(doc, time.Date(2025, 5, 3, 21, 0, 0, 0, time.Local), state.SlotNightCinema,
		state.CalendarEntry{Title: "Alien", Year: "1979", PosterURL: "https://img.example/alien.jpg", FinalRating: 8.25})
	doc.Leaderboard = map[string]int{"luis": 3, "ana": 3, "zoe": 5, "bea": 1}
	return doc
}

func TestSpanishNames(t *testing.T) {
	if got := MonthName(time.May); got != "Mayo" {
		t.Fatalf("month = %q", got)
	}
	if got := WeekdayName(time.Wednesday); got != "Miércoles" {
		t.Fatalf("weekday = %q", got)
	}
	if got := WeekdayName(time.Saturday); got != "Sábado" {
		t.Fatalf("weekday = %q", got)
	}
}

func TestTopVotersOrdering(t *testing.T) {
	rows := TopVoters(map[string]int{"luis": 3, "ana": 3, "zoe": 5, "bea": 1}, 3)
	want := []string{"zoe", "ana", "luis"}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i, voter := range want {
		if rows[i].Voter != voter {
			t.Fatalf("rows[%d] = %+v, want %s", i, rows[i], voter)
		}
	}
}

func TestTopVotersLimit(t *testing.T) {
	counts := map[string]int{}
	for i := range 15 {
		counts[string(rune('a'+i))] = i
	}
	if rows := TopVoters(counts, LeaderboardSize); len(rows) != 10 || rows[0].Voter != "o" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestBuildView(t *testing.T) {
	doc := sampleDoc()
	doc.Current = &state.Session{TitleRecord: state.TitleRecord{Title: "Heat", Year: "1995"}, TimeSlot: state.SlotNightCinema}
	doc.Votes = state.Ledger{TotalScore: 15, NumVotes: 2, Voters: []state.Vote{{User: "a", Score: 7}, {User: "b", Score: 8}}}

	view, err := BuildView(doc)
	if err != nil {
		t.Fatalf("BuildView: %v", err)
	}
	if view.Year != 2025 || view.MonthName != "Mayo" || len(view.Days) != 31 {
		t.Fatalf("view header = %d %s %d", view.Year, view.MonthName, len(view.Days))
	}
	third := view.Days[2]
	if third.DayName != "Sábado" || third.Slots[1].Entry == nil || third.Slots[0].Entry != nil {
		t.Fatalf("third = %+v", third)
	}
	if view.NowPlaying == nil || view.NowPlaying.Average != 7.5 || view.NowPlaying.Votes != 2 {
		t.Fatalf("now playing = %+v", view.NowPlaying)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc := sampleDoc()
	first, err := r.RenderDocument(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for range 5 {
		again, err := r.RenderDocument(doc)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("render output differs between runs")
		}
	}

	html := string(first)
	for _, want := range []string{"Mayo 2025", "Alien (1979)", "8.25", "Sábado 3", "zoe"} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Index(html, "ana") > strings.Index(html, "luis") {
		t.Error("ties should be listed alphabetically")
	}
	if strings.Contains(html, "Ahora en emisión") {
		t.Error("idle document should not show a now-playing block")
	}
}

func TestTemplateOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.tmpl")
	if err := os.WriteFile(path, []byte(`{{.MonthName}}|{{len .Days}}|{{range .Leaderboard}}{{.Voter}}{{end}}`), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	r, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.RenderDocument(sampleDoc())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "Mayo|31|zoeanaluisbea" {
		t.Fatalf("output = %q", out)
	}
}

func TestWriteFile(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "site", "calendar.html")
	if err := r.WriteFile(sampleDoc(), path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("stat: %v", err)
	}
}

func TestNewMissingOverride(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.tmpl")); err == nil {
		t.Fatal("expected error")
	}
}
