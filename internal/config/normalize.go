package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.input_file", &c.Paths.InputFile, defaultInputFile},
		{"paths.state_file", &c.Paths.StateFile, defaultStateFile},
		{"paths.output_html", &c.Paths.OutputHTML, defaultOutputHTML},
		{"paths.vote_response_file", &c.Paths.VoteResponseFile, defaultVoteResponseFile},
		{"paths.vote_trace_file", &c.Paths.VoteTraceFile, defaultVoteTraceFile},
		{"paths.history_db", &c.Paths.HistoryDB, defaultHistoryDB},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	var err error
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		if *field.value, err = expandPath(strings.TrimSpace(*field.value)); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	if c.Paths.TemplateFile, err = expandPath(strings.TrimSpace(c.Paths.TemplateFile)); err != nil {
		return fmt.Errorf("paths.template_file: %w", err)
	}
	// The rendered page and the state document live in the published repository
	// unless told otherwise.
	if strings.TrimSpace(c.Paths.RepoDir) == "" {
		c.Paths.RepoDir = filepath.Dir(c.Paths.OutputHTML)
	}
	if c.Paths.RepoDir, err = expandPath(strings.TrimSpace(c.Paths.RepoDir)); err != nil {
		return fmt.Errorf("paths.repo_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
}

func (c *Config) normalizePublish() {
	c.Publish.Remote = strings.TrimSpace(c.Publish.Remote)
	if c.Publish.Remote == "" {
		c.Publish.Remote = defaultPublishRemote
	}
	c.Publish.Branch = strings.TrimSpace(c.Publish.Branch)
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
