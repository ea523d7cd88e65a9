package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/logging"
)

// ErrAlreadyRunning is returned when another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another cinebot loop is already running")

// Loop is the blocking poll loop.
type Loop interface {
	Run(ctx context.Context) error
}

// Server is started before the loop and stops when ctx ends.
type Server interface {
	Start(ctx context.Context) error
}

// Daemon couples the loop and the API under a single-instance lock.
type Daemon struct {
	loop   Loop
	server Server
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
}

// New builds a daemon. server may be nil.
func New(cfg *config.Config, loop Loop, server Server, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || loop == nil {
		return nil, errors.New("daemon requires config and loop")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "cinebot.lock")
	return &Daemon{
		loop:     loop,
		server:   server,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath is the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Running reports whether Run is in progress.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Run takes the lock, starts the server and blocks in the loop until ctx is
// cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, d.lockPath)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	d.running.Store(true)
	defer d.running.Store(false)
	d.logger.Info("cinebot started", logging.String("lock", d.lockPath))

	if d.server != nil {
		if err := d.server.Start(ctx); err != nil {
			return err
		}
	}

	err = d.loop.Run(ctx)
	d.logger.Info("cinebot stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
