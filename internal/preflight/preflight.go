package preflight

import (
	"context"
	"path/filepath"

	"github.com/Piravision/Votaciones/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg. Git checks only run when
// publishing is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Input directory", filepath.Dir(cfg.Paths.InputFile)),
		CheckDirectoryAccess("Output directory", filepath.Dir(cfg.Paths.OutputHTML)),
		CheckDirectoryAccess("State directory", filepath.Dir(cfg.Paths.StateFile)),
	}
	if cfg.Paths.TemplateFile != "" {
		results = append(results, CheckFile("Template file", cfg.Paths.TemplateFile))
	}
	results = append(results, CheckTMDB(ctx, cfg.TMDB.BaseURL, cfg.TMDB.APIKey))

	if cfg.Publish.Enabled {
		results = append(results,
			CheckBinary("git", cfg.GitBinary()),
			CheckGitRepository("Site repository", cfg.Paths.RepoDir),
		)
	}
	return results
}

// Failed returns the failed results.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
