package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/render"
	"github.com/Piravision/Votaciones/internal/state"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// fileLogger logs only to the log directory so command output stays clean
// for callers that parse it.
func (c *commandContext) fileLogger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.Paths.LogDir == "" {
		return logging.NewNop()
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "cinebot.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) store(logger *slog.Logger) (*state.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return state.NewStore(cfg.Paths.StateFile, cfg.LockTimeout(), logger), nil
}

func (c *commandContext) renderer() (*render.Renderer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return render.New(cfg.Paths.TemplateFile)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "sí"
	}
	return "no"
}
