package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Piravision/Votaciones/internal/fileutil"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/services"
)

const lockRetryDelay = 50 * time.Millisecond

// ErrNoChange may be returned by an Update callback to release the lock
// without rewriting the document.
var ErrNoChange = errors.New("state unchanged")

// MonthKey formats the calendar month a time belongs to.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// New returns an empty document scoped to the month of now.
func New(now time.Time) *Document {
	doc := &Document{}
	doc.fillDefaults(now)
	return doc
}

func (d *Document) fillDefaults(now time.Time) {
	if d.Month == "" {
		d.Month = MonthKey(now)
	}
	if d.Current != nil && d.Current.Title == "" {
		d.Current = nil
	}
	if d.Votes.Voters == nil {
		d.Votes.Voters = []Vote{}
	}
	if d.Calendar == nil {
		d.Calendar = map[string]Day{}
	}
	if d.Leaderboard == nil {
		d.Leaderboard = map[string]int{}
	}
}

// Parse decodes a state document, filling any missing top-level key with its
// default. Invalid JSON is reported as ErrStateCorrupt.
func Parse(data []byte, now time.Time) (*Document, error) {
	doc := &Document{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, services.Wrap(services.ErrStateCorrupt, "state", "parse", "invalid state document", err)
		}
	}
	doc.fillDefaults(now)
	return doc, nil
}

// Store guards the on-disk document with an advisory file lock shared by the
// poll loop, the vote command, and the HTTP API. The file lock only excludes
// other processes; sem serializes callers within this one.
type Store struct {
	path    string
	sem     chan struct{}
	lock    *flock.Flock
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewStore builds a store for the document at path.
func NewStore(path string, timeout time.Duration, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		path:    path,
		sem:     make(chan struct{}, 1),
		lock:    flock.New(path + ".lock"),
		timeout: timeout,
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "state"),
	}
}

// WithClock overrides the clock used for defaults. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Read returns a snapshot of the document under a shared lock. A corrupt
// document yields defaults.
func (s *Store) Read(ctx context.Context) (*Document, error) {
	var snapshot *Document
	err := s.View(ctx, func(doc *Document) error {
		snapshot = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// View loads the document and calls fn while the shared lock is still held,
// so no writer can change the document before fn returns. A corrupt
// document yields defaults.
func (s *Store) View(ctx context.Context, fn func(*Document) error) error {
	release, err := s.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer release()

	doc, err := s.load()
	if err != nil {
		if !errors.Is(err, services.ErrStateCorrupt) {
			return err
		}
		s.warnCorrupt(err)
		doc = New(s.now())
	}
	return fn(doc)
}

// Update loads the document under an exclusive lock, applies fn, and writes
// the result atomically. When fn returns an error nothing is written; for
// ErrNoChange the loaded document is returned without error.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) (*Document, error) {
	release, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.load()
	if err != nil {
		if !errors.Is(err, services.ErrStateCorrupt) {
			return nil, err
		}
		s.warnCorrupt(err)
		s.quarantine()
		doc = New(s.now())
	}

	if err := fn(doc); err != nil {
		if errors.Is(err, ErrNoChange) {
			return doc, nil
		}
		return nil, err
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("initializing new state document", logging.String("path", s.path))
			return New(s.now()), nil
		}
		return nil, fmt.Errorf("read state document: %w", err)
	}
	return Parse(data, s.now())
}

func (s *Store) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal state document: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state document: %w", err)
	}
	return nil
}

// quarantine keeps a copy of an unreadable document next to the original
// before it is overwritten with defaults.
func (s *Store) quarantine() {
	target := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().Format("20060102T150405"))
	if err := os.Rename(s.path, target); err != nil {
		s.logger.Debug("could not keep corrupt state document", logging.Error(err))
		return
	}
	s.logger.Info("corrupt state document moved aside", logging.String("path", target))
}

func (s *Store) warnCorrupt(err error) {
	logging.WarnWithContext(s.logger, "state document unreadable; starting from defaults", services.Kind(err),
		logging.Error(err),
		logging.String("path", s.path),
		logging.String(logging.FieldErrorHint, "inspect or restore the state document"),
		logging.String(logging.FieldImpact, "calendar, votes and leaderboard reset"))
}

// acquire takes the in-process slot and then the file lock, shared or
// exclusive, within the store timeout.
func (s *Store) acquire(ctx context.Context, shared bool) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
	case <-lockCtx.Done():
		return nil, fmt.Errorf("acquire state lock: %w", lockError(nil))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		<-s.sem
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	var ok bool
	var err error
	if shared {
		ok, err = s.lock.TryRLockContext(lockCtx, lockRetryDelay)
	} else {
		ok, err = s.lock.TryLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil || !ok {
		<-s.sem
		return nil, fmt.Errorf("acquire state lock: %w", lockError(err))
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release state lock", logging.Error(err))
		}
		<-s.sem
	}, nil
}

func lockError(err error) error {
	if err != nil {
		return err
	}
	return errors.New("timed out waiting for lock")
}
