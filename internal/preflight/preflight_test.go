package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Piravision/Votaciones/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTMDB_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" || r.URL.Query().Get("api_key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckTMDB(context.Background(), srv.URL, "good-key"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckTMDB_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckTMDB(context.Background(), srv.URL, "bad-key")
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckTMDB_MissingKey(t *testing.T) {
	if result := CheckTMDB(context.Background(), "http://localhost", ""); result.Passed || result.Detail != "missing api key" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckBinary(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("git"))
	if result := CheckBinary("git", "git"); !result.Passed {
		t.Fatalf("expected stubbed git on PATH: %s", result.Detail)
	}
	if result := CheckBinary("missing", "definitely-not-a-binary-xyz"); result.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCheckGitRepository(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "site")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckGitRepository("repo", nested); !result.Passed || result.Detail != root {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result := CheckGitRepository("repo", t.TempDir()); result.Passed {
		t.Fatal("expected failure outside a repository")
	}
}

func TestRunAllSkipsGitWhenPublishDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBKey(""))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "git" || r.Name == "Site repository" {
			t.Fatalf("unexpected git check: %+v", r)
		}
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "TMDB" {
		t.Fatalf("failed = %+v", failed)
	}
}
