package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Piravision/Votaciones/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose paths all live in a per-test temp
// directory. Publishing is off unless WithPublish is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths = config.Paths{
		InputFile:        filepath.Join(base, "now_playing.txt"),
		StateFile:        filepath.Join(base, "site", "votes.json"),
		OutputHTML:       filepath.Join(base, "site", "calendar.html"),
		VoteResponseFile: filepath.Join(base, "vote_response.txt"),
		VoteTraceFile:    filepath.Join(base, "logs", "vote_trace.log"),
		HistoryDB:        filepath.Join(base, "history.db"),
		LogDir:           filepath.Join(base, "logs"),
		RepoDir:          filepath.Join(base, "site"),
	}
	cfgVal.Publish.Enabled = false
	cfgVal.State.LockTimeoutSeconds = 2
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithPublish enables git publishing.
func WithPublish() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.Enabled = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. With no names, git is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"git"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputFile)
}
