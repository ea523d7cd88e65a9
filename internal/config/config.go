package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations used by the poll loop and the vote handler.
type Paths struct {
	InputFile        string `toml:"input_file"`
	StateFile        string `toml:"state_file"`
	OutputHTML       string `toml:"output_html"`
	TemplateFile     string `toml:"template_file"`
	VoteResponseFile string `toml:"vote_response_file"`
	VoteTraceFile    string `toml:"vote_trace_file"`
	HistoryDB        string `toml:"history_db"`
	LogDir           string `toml:"log_dir"`
	RepoDir          string `toml:"repo_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Language     string `toml:"language"`
	ImageBaseURL string `toml:"image_base_url"`
}

// Poll controls the watch loop cadence.
type Poll struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Slots defines the daytime voting window. Hours outside
// [DaytimeStartHour, DaytimeEndHour) belong to the night slot.
type Slots struct {
	DaytimeStartHour int `toml:"daytime_start_hour"`
	DaytimeEndHour   int `toml:"daytime_end_hour"`
}

// Publish contains settings for the git publish step.
type Publish struct {
	Enabled bool   `toml:"enabled"`
	Remote  string `toml:"remote"`
	Branch  string `toml:"branch"`
}

// State contains settings for the shared state document.
type State struct {
	LockTimeoutSeconds int `toml:"lock_timeout_seconds"`
}

// API contains the optional in-process vote API settings.
type API struct {
	Bind string `toml:"bind"`
}

// Notifications configures ntfy pushes for closed sessions and publish failures.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cinebot.
//
// Configuration sections by subsystem:
//   - Paths: watched input, state document, rendered page, vote files
//   - TMDB: metadata lookups for the playing title
//   - Poll: watch loop interval
//   - Slots: daytime/night slot boundaries
//   - Publish: git add/commit/push after each change
//   - State: advisory lock timeout for the state document
//   - API: optional HTTP vote endpoint served by the poll loop
//   - Notifications: optional ntfy topic
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	TMDB          TMDB          `toml:"tmdb"`
	Poll          Poll          `toml:"poll"`
	Slots         Slots         `toml:"slots"`
	Publish       Publish       `toml:"publish"`
	State         State         `toml:"state"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cinebot/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cinebot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the parent directories of every file the bot writes.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogDir,
		filepath.Dir(c.Paths.StateFile),
		filepath.Dir(c.Paths.OutputHTML),
		filepath.Dir(c.Paths.VoteResponseFile),
		filepath.Dir(c.Paths.VoteTraceFile),
		filepath.Dir(c.Paths.HistoryDB),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the watch loop interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// LockTimeout returns how long callers wait for the state document lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.State.LockTimeoutSeconds) * time.Second
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// GitBinary returns the git executable name used by the publish step.
func (c *Config) GitBinary() string {
	return "git"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
