package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/Piravision/Votaciones/internal/config"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "cinebot", "site", "votes.json")
	if cfg.Paths.StateFile != wantState {
		t.Fatalf("unexpected state file: got %q want %q", cfg.Paths.StateFile, wantState)
	}
	if cfg.Paths.RepoDir != filepath.Dir(cfg.Paths.OutputHTML) {
		t.Fatalf("expected repo dir to default to output dir, got %q", cfg.Paths.RepoDir)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.Language != "es-ES" {
		t.Fatalf("unexpected TMDB language: %q", cfg.TMDB.Language)
	}
	if cfg.PollInterval().Seconds() != 10 {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.Slots.DaytimeStartHour != 12 || cfg.Slots.DaytimeEndHour != 19 {
		t.Fatalf("unexpected slot bounds: %+v", cfg.Slots)
	}
	if !cfg.Publish.Enabled {
		t.Fatal("expected publish enabled by default")
	}
	if cfg.API.Bind != "" {
		t.Fatalf("expected API disabled by default, got %q", cfg.API.Bind)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, filepath.Dir(cfg.Paths.StateFile)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cinebot.toml")

	type payload struct {
		Paths struct {
			InputFile string `toml:"input_file"`
		} `toml:"paths"`
		TMDB struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"tmdb"`
		Poll struct {
			IntervalSeconds int `toml:"interval_seconds"`
		} `toml:"poll"`
	}
	custom := payload{}
	custom.Paths.InputFile = filepath.Join(tempDir, "tuna.txt")
	custom.TMDB.APIKey = "abc123"
	custom.TMDB.BaseURL = "https://example.com/tmdb"
	custom.Poll.IntervalSeconds = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.TMDB.APIKey != "abc123" {
		t.Fatalf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != "https://example.com/tmdb" {
		t.Fatalf("expected TMDB base url override, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.Paths.InputFile != custom.Paths.InputFile {
		t.Fatalf("expected input file override, got %q", cfg.Paths.InputFile)
	}
	if cfg.Poll.IntervalSeconds != 3 {
		t.Fatalf("expected interval 3, got %d", cfg.Poll.IntervalSeconds)
	}
}

func TestLoadWithoutTMDBKey(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load without key: %v", err)
	}
	if err := cfg.ValidateLookup(); err == nil || !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_tmdb_api_key_here") {
		t.Fatalf("sample config missing placeholder TMDB key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Slots.DaytimeEndHour != 19 {
		t.Fatalf("unexpected sample slot end: %d", cfg.Slots.DaytimeEndHour)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.Poll.IntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}

	cfg = config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.Slots.DaytimeEndHour = cfg.Slots.DaytimeStartHour
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when slot end <= start")
	}

	cfg = config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.State.LockTimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative lock timeout")
	}

	cfg = config.Default()
	cfg.TMDB.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidateDoesNotRequireLookupKey(t *testing.T) {
	cfg := config.Default()
	cfg.TMDB.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("vote and view commands must load without a TMDB key, got %v", err)
	}
	if err := cfg.ValidateLookup(); err == nil || !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("expected missing key error from ValidateLookup, got %v", err)
	}
	cfg.TMDB.APIKey = "key"
	if err := cfg.ValidateLookup(); err != nil {
		t.Fatalf("ValidateLookup: %v", err)
	}
}
