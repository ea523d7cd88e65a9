package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/history"
	"github.com/Piravision/Votaciones/internal/state"
	"github.com/Piravision/Votaciones/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *state.Store
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = ""
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.NewStore(t, cfg),
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (env *cliTestEnv) openSession(t *testing.T, title string) {
	t.Helper()
	testsupport.SeedState(t, env.store, func(doc *state.Document) {
		doc.Current = &state.Session{
			TitleRecord: state.TitleRecord{Title: title, Year: "1999"},
			TimeSlot:    state.SlotNightCinema,
			StartTime:   state.NewTimestamp(time.Now()),
		}
	})
}

func TestRegisterVoteAccepted(t *testing.T) {
	env := setupCLITestEnv(t)
	env.openSession(t, "Matrix")

	out, err := env.run(t, "register_vote", "Alice", "8,5")
	if err != nil {
		t.Fatalf("register_vote: %v", err)
	}
	if !strings.Contains(out, "@Alice, tu voto de 8.5 para Matrix ha sido registrado.") {
		t.Fatalf("unexpected reply %q", out)
	}

	reply := testsupport.ReadFile(t, env.cfg.Paths.VoteResponseFile)
	if strings.TrimSpace(reply) != strings.TrimSpace(out) {
		t.Fatalf("response file %q does not match stdout %q", reply, out)
	}

	doc := testsupport.MustRead(t, env.store)
	if doc.Votes.NumVotes != 1 || doc.Votes.TotalScore != 8.5 {
		t.Fatalf("ledger = %+v", doc.Votes)
	}
	if _, err := os.Stat(env.cfg.Paths.OutputHTML); err != nil {
		t.Fatalf("expected page to be rendered: %v", err)
	}
}

func TestRegisterVoteRejectedStillExitsCleanly(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "register_vote", "Bob", "7")
	if err != nil {
		t.Fatalf("rejected vote should not fail the command: %v", err)
	}
	if !strings.Contains(out, "la votación está cerrada") {
		t.Fatalf("unexpected reply %q", out)
	}

	env.openSession(t, "Matrix")
	if _, err := env.run(t, "register_vote", "Bob", "7"); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	out, err = env.run(t, "register_vote", "bob", "9")
	if err != nil {
		t.Fatalf("duplicate vote: %v", err)
	}
	if !strings.Contains(out, "ya has votado por Matrix") {
		t.Fatalf("unexpected duplicate reply %q", out)
	}
	if doc := testsupport.MustRead(t, env.store); doc.Votes.NumVotes != 1 {
		t.Fatalf("expected one vote, got %d", doc.Votes.NumVotes)
	}
}

func TestRegisterVoteWithoutTMDBKey(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	env := setupCLITestEnv(t)
	env.cfg.TMDB.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)
	env.openSession(t, "Matrix")

	out, err := env.run(t, "register_vote", "Alice", "9")
	if err != nil {
		t.Fatalf("register_vote without TMDB key: %v", err)
	}
	if !strings.Contains(out, "ha sido registrado") {
		t.Fatalf("unexpected reply %q", out)
	}
	if reply := testsupport.ReadFile(t, env.cfg.Paths.VoteResponseFile); !strings.Contains(reply, "ha sido registrado") {
		t.Fatalf("response file = %q", reply)
	}
	if trace := testsupport.ReadFile(t, env.cfg.Paths.VoteTraceFile); !strings.Contains(trace, "Alice") {
		t.Fatalf("trace file = %q", trace)
	}
	if doc := testsupport.MustRead(t, env.store); doc.Votes.NumVotes != 1 {
		t.Fatalf("expected one vote, got %d", doc.Votes.NumVotes)
	}

	if _, err := env.run(t, "leaderboard"); err != nil {
		t.Fatalf("leaderboard without TMDB key: %v", err)
	}
	if _, err := env.run(t, "config", "validate"); err == nil || !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("config validate should report the missing key, got %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"register_vote", "Alice"},
		{"register_vote", "Alice", "7", "extra"},
		{"bogus"},
		{"status", "--nope"},
	}
	for _, args := range cases {
		_, err := env.run(t, args...)
		var usage usageError
		if !errors.As(err, &usage) {
			t.Fatalf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestLeaderboardCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !strings.Contains(out, "No votes recorded yet") {
		t.Fatalf("unexpected empty output %q", out)
	}

	testsupport.SeedState(t, env.store, func(doc *state.Document) {
		doc.Leaderboard = map[string]int{"alice": 3, "bob": 5, "carol": 1}
	})
	out, err = env.run(t, "leaderboard", "--limit", "2")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !strings.Contains(out, "bob") || !strings.Contains(out, "alice") {
		t.Fatalf("expected top voters, got %q", out)
	}
	if strings.Contains(out, "carol") {
		t.Fatalf("limit not applied: %q", out)
	}
	if strings.Index(out, "bob") > strings.Index(out, "alice") {
		t.Fatalf("expected bob before alice: %q", out)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Voting: closed") {
		t.Fatalf("unexpected idle status %q", out)
	}

	env.openSession(t, "Matrix")
	if _, err := env.run(t, "register_vote", "Alice", "9"); err != nil {
		t.Fatalf("register_vote: %v", err)
	}
	out, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Playing: Matrix (1999)", "Votes: 1 (average 9.00)", "Alice"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q:\n%s", want, out)
		}
	}
}

func TestCalendarCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	var dayKey string
	testsupport.SeedState(t, env.store, func(doc *state.Document) {
		dayKey = doc.Month + "-03"
		doc.Calendar[dayKey] = state.Day{
			state.SlotDaytime:     nil,
			state.SlotNightCinema: &state.CalendarEntry{Title: "Alien", Year: "1979", FinalRating: 7.25},
		}
	})

	out, err := env.run(t, "calendar")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if !strings.Contains(out, dayKey) || !strings.Contains(out, "Alien (1979) ★ 7.25") {
		t.Fatalf("unexpected calendar output:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "History is empty") {
		t.Fatalf("unexpected output %q", out)
	}

	archive, err := history.Open(env.cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	_, err = archive.Record(context.Background(), history.Record{
		SessionID:   "s-1",
		Day:         "2025-03-04",
		Slot:        string(state.SlotDaytime),
		Title:       "Amélie",
		Year:        "2001",
		FinalRating: 8.4,
		NumVotes:    3,
		StartedAt:   time.Date(2025, 3, 4, 13, 0, 0, 0, time.Local),
		ClosedAt:    time.Date(2025, 3, 4, 15, 0, 0, 0, time.Local),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "2025-03") {
		t.Fatalf("expected month listing, got %q", out)
	}

	out, err = env.run(t, "history", "2025-03")
	if err != nil {
		t.Fatalf("history month: %v", err)
	}
	for _, want := range []string{"Amélie", "8.40", "2025-03-04"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCommandWritesPage(t *testing.T) {
	env := setupCLITestEnv(t)
	env.openSession(t, "Matrix")

	out, err := env.run(t, "render")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, env.cfg.Paths.OutputHTML) {
		t.Fatalf("unexpected output %q", out)
	}
	page := testsupport.ReadFile(t, env.cfg.Paths.OutputHTML)
	if !strings.Contains(page, "Matrix") {
		t.Fatalf("rendered page missing title")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "cinebot", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "api_key = 'test'") || !strings.Contains(out, "********") {
		t.Fatalf("api key not masked:\n%s", out)
	}
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "Notifications are disabled") {
		t.Fatalf("unexpected output %q", out)
	}
}
