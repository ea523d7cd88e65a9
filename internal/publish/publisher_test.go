package publish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/services"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	failOn string
	output string
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	if len(args) > 0 && args[0] == f.failOn {
		return []byte(f.output), errors.New("exit status 1")
	}
	return nil, nil
}

func testConfig(enabled bool) *config.Config {
	cfg := config.Default()
	cfg.Publish.Enabled = enabled
	cfg.Publish.Remote = "origin"
	cfg.Publish.Branch = "main"
	cfg.Paths.RepoDir = "/srv/site"
	return &cfg
}

func TestPublishRunsAllSteps(t *testing.T) {
	runner := &fakeRunner{}
	p := New(testConfig(true), logging.NewNop(), WithRunner(runner))

	if err := p.Publish(context.Background(), UpdateMessage("Alien (1979)")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("calls = %+v", runner.calls)
	}
	got := make([]string, 0, 3)
	for _, c := range runner.calls {
		if c.dir != "/srv/site" || c.name != "git" {
			t.Fatalf("unexpected call %+v", c)
		}
		got = append(got, strings.Join(c.args, " "))
	}
	want := []string{"add .", "commit -m Actualización automática de calendario (Alien (1979))", "push origin main"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPublishAttemptsEveryStep(t *testing.T) {
	runner := &fakeRunner{failOn: "add", output: "fatal: not a git repository"}
	p := New(testConfig(true), logging.NewNop(), WithRunner(runner))

	err := p.Publish(context.Background(), ResetMessage("2025-06"))
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected all steps attempted, got %d calls", len(runner.calls))
	}
}

func TestPublishCommitFailureStillPushes(t *testing.T) {
	runner := &fakeRunner{failOn: "commit", output: "error: unable to write index"}
	p := New(testConfig(true), logging.NewNop(), WithRunner(runner))

	err := p.Publish(context.Background(), "msg")
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if len(runner.calls) != 3 || runner.calls[2].args[0] != "push" {
		t.Fatalf("push not attempted, calls = %+v", runner.calls)
	}
}

func TestPublishNothingToCommitStillPushes(t *testing.T) {
	runner := &fakeRunner{failOn: "commit", output: "On branch main\nnothing to commit, working tree clean"}
	p := New(testConfig(true), logging.NewNop(), WithRunner(runner))

	if err := p.Publish(context.Background(), "msg"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("calls = %+v", runner.calls)
	}
	if got := strings.Join(runner.calls[2].args, " "); got != "push origin main" {
		t.Fatalf("last call = %q", got)
	}
}

func TestPublishDisabled(t *testing.T) {
	runner := &fakeRunner{}
	p := New(testConfig(false), logging.NewNop(), WithRunner(runner))
	if err := p.Publish(context.Background(), "msg"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("calls = %d", len(runner.calls))
	}
}

func TestMessages(t *testing.T) {
	if ResetMessage("2025-06") != "Reset calendario para 2025-06" {
		t.Fatal("reset message")
	}
}
