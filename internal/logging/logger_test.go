package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.TMDB.APIKey = "test"
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "cinebot.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "poller").Info("message without caller", logging.String("title", "Inception"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if !strings.Contains(line, "poller: message without caller") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "title=Inception") {
		t.Fatalf("expected title attribute, got %q", line)
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quoted.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("changed", logging.String("content", "Breaking Bad S03E05"))

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), `content="Breaking Bad S03E05"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRequestID(context.Background(), "tick-1")
	ctx = services.WithSessionID(ctx, "session-9")
	logging.WithContext(ctx, logger).Warn("lookup failed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["correlation_id"] != "tick-1" || entry["session_id"] != "session-9" {
		t.Fatalf("missing context fields: %#v", entry)
	}
	if entry["level"] != "warn" {
		t.Fatalf("unexpected level: %#v", entry["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextFillsMissingFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "render failed", "render_failure",
		logging.String(logging.FieldImpact, "page is stale"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["event_type"] != "render_failure" || entry["error_hint"] == nil {
		t.Fatalf("defaults not injected: %#v", entry)
	}
	if entry["impact"] != "page is stale" {
		t.Fatalf("caller impact overwritten: %#v", entry["impact"])
	}
}
