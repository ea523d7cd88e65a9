package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/services"
)

// Runner executes an external command inside dir and returns its combined
// output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Publisher stages, commits and pushes the site repository.
type Publisher struct {
	enabled bool
	git     string
	dir     string
	remote  string
	branch  string
	runner  Runner
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(p *Publisher) {
		if r != nil {
			p.runner = r
		}
	}
}

// New builds a publisher from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		enabled: cfg.Publish.Enabled,
		git:     cfg.GitBinary(),
		dir:     cfg.Paths.RepoDir,
		remote:  strings.TrimSpace(cfg.Publish.Remote),
		branch:  strings.TrimSpace(cfg.Publish.Branch),
		runner:  execRunner{},
		logger:  logging.NewComponentLogger(logger, "publish"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether publishing is configured on.
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

// Publish runs add, commit and push. Every step is attempted once even when
// an earlier one failed, so a commit left behind by a failed push goes out on
// a later run. Step failures are joined into the returned error.
func (p *Publisher) Publish(ctx context.Context, message string) error {
	if !p.Enabled() {
		p.logger.Debug("publish disabled; skipping", logging.String("message", message))
		return nil
	}

	var errs []error
	if _, err := p.step(ctx, "add", "add", "."); err != nil {
		errs = append(errs, err)
	}
	if out, err := p.step(ctx, "commit", "commit", "-m", message); err != nil {
		if nothingToCommit(out) {
			p.logger.Info("no changes to commit", logging.String("message", message))
		} else {
			errs = append(errs, err)
		}
	}

	pushArgs := []string{"push"}
	if p.remote != "" {
		pushArgs = append(pushArgs, p.remote)
		if p.branch != "" {
			pushArgs = append(pushArgs, p.branch)
		}
	}
	if _, err := p.step(ctx, "push", pushArgs...); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	p.logger.Info("calendar published",
		logging.String("message", message),
		logging.String(logging.FieldEventType, "publish_complete"))
	return nil
}

func (p *Publisher) step(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := p.runner.Run(ctx, p.dir, p.git, args...)
	output := strings.TrimSpace(string(out))
	if err != nil {
		if nothingToCommit(out) {
			return out, err
		}
		logging.ErrorWithContext(p.logger, "git "+name+" failed", "publish_failure",
			logging.Error(err),
			logging.String("output", output),
			logging.String("repo_dir", p.dir),
			logging.String(logging.FieldErrorHint, "check repository remote and credentials"))
		return out, services.Wrap(services.ErrPublish, "publish", "git "+name, output, err)
	}
	p.logger.Debug("git "+name+" succeeded", logging.String("output", output))
	return out, nil
}

func nothingToCommit(out []byte) bool {
	text := strings.ToLower(string(out))
	return strings.Contains(text, "nothing to commit") || strings.Contains(text, "nothing added to commit")
}

// ResetMessage is the commit message used when the calendar rolls over.
func ResetMessage(month string) string {
	return fmt.Sprintf("Reset calendario para %s", month)
}

// UpdateMessage is the commit message used when the now-playing line changes.
func UpdateMessage(content string) string {
	return fmt.Sprintf("Actualización automática de calendario (%s)", content)
}
