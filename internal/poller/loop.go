package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Piravision/Votaciones/internal/calendar"
	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/fileutil"
	"github.com/Piravision/Votaciones/internal/history"
	"github.com/Piravision/Votaciones/internal/ledger"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/publish"
	"github.com/Piravision/Votaciones/internal/services"
	"github.com/Piravision/Votaciones/internal/state"
	"github.com/Piravision/Votaciones/internal/titleparse"
)

// Resolver looks up a classified line.
type Resolver interface {
	Resolve(ctx context.Context, c titleparse.Classification) (state.TitleRecord, error)
}

// Page writes the rendered calendar.
type Page interface {
	WriteFile(doc *state.Document, path string) error
}

// Publisher pushes the rendered site.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// Recorder archives closed sessions beyond the current month.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) (int64, error)
}

// Notifier announces closed sessions and publish failures.
type Notifier interface {
	NotifySessionClosed(ctx context.Context, title, year string, rating float64, votes int) error
	NotifyPublishFailed(ctx context.Context, err error, commitMessage string) error
}

// Deps are the collaborators of a Loop. History and Notifier may be nil.
type Deps struct {
	Store     *state.Store
	Resolver  Resolver
	Page      Page
	Publisher Publisher
	History   Recorder
	Notifier  Notifier
}

// Loop watches the now-playing file and drives session changes.
type Loop struct {
	inputPath  string
	outputPath string
	interval   time.Duration
	slots      calendar.SlotRule

	store     *state.Store
	resolver  Resolver
	page      Page
	publisher Publisher
	history   Recorder
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time

	lastContent string
	seen        bool
}

// New builds a loop from configuration.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Loop, error) {
	if deps.Store == nil {
		return nil, errors.New("poller requires a state store")
	}
	if deps.Resolver == nil || deps.Page == nil || deps.Publisher == nil {
		return nil, errors.New("poller requires resolver, page and publisher")
	}
	return &Loop{
		inputPath:  cfg.Paths.InputFile,
		outputPath: cfg.Paths.OutputHTML,
		interval:   cfg.PollInterval(),
		slots: calendar.SlotRule{
			DaytimeStart: cfg.Slots.DaytimeStartHour,
			DaytimeEnd:   cfg.Slots.DaytimeEndHour,
		},
		store:     deps.Store,
		resolver:  deps.Resolver,
		page:      deps.Page,
		publisher: deps.Publisher,
		history:   deps.History,
		notifier:  deps.Notifier,
		logger:    logging.NewComponentLogger(logger, "poller"),
		now:       time.Now,
	}, nil
}

// SetClock overrides the time source. Intended for tests.
func (l *Loop) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Run ticks immediately and then on every interval until ctx is cancelled.
// Tick errors are logged and never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("watching now-playing file",
		logging.String("input", l.inputPath),
		logging.Duration("interval", l.interval))

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.runTick(ctx)
		select {
		case <-ctx.Done():
			l.logger.Info("poll loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (l *Loop) runTick(ctx context.Context) {
	tickCtx := services.WithRequestID(ctx, uuid.NewString())
	if err := l.Tick(tickCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.ErrorWithContext(logging.WithContext(tickCtx, l.logger), "poll tick failed", services.Kind(err),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next tick retries automatically"))
	}
}

// Tick performs one poll: month rollover first, then change detection on the
// now-playing line.
func (l *Loop) Tick(ctx context.Context) error {
	now := l.now()
	logger := logging.WithContext(ctx, l.logger)

	content, err := l.readInput(logger)
	if err != nil {
		return err
	}

	if err := l.rollover(ctx, logger, now); err != nil {
		return err
	}

	first := !l.seen
	if !first && content == l.lastContent {
		return nil
	}
	logger.Info("now-playing line changed", logging.String("content", content))

	if first {
		adopted, err := l.adopt(ctx, logger, content)
		if err != nil {
			return err
		}
		if adopted {
			l.remember(content)
			return nil
		}
	}

	record := l.resolve(ctx, logger, content)

	var closed *history.Record
	doc, err := l.store.Update(ctx, func(doc *state.Document) error {
		closed = l.closeSession(doc, now)
		l.openSession(doc, record, content, now)
		ledger.Reset(doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply session change: %w", err)
	}
	l.remember(content)

	if closed != nil {
		logger.Info("session archived",
			logging.String(logging.FieldTitle, closed.Title),
			logging.String("day", closed.Day),
			logging.String("slot", closed.Slot),
			logging.Float64("final_rating", closed.FinalRating),
			logging.String(logging.FieldSessionID, closed.SessionID))
		l.recordHistory(ctx, logger, *closed)
		l.notifyClosed(ctx, logger, *closed)
	}
	if doc.HasActiveSession() {
		sessionCtx := services.WithSessionID(ctx, doc.Current.SessionID)
		logging.WithContext(sessionCtx, l.logger).Info("voting open",
			logging.String(logging.FieldTitle, doc.Current.Title),
			logging.String("slot", string(doc.Current.TimeSlot)))
	} else {
		logger.Info("no title playing; voting closed")
	}

	l.renderAndPublish(ctx, logger, publish.UpdateMessage(content))
	return nil
}

func (l *Loop) remember(content string) {
	l.lastContent = content
	l.seen = true
}

func (l *Loop) readInput(logger *slog.Logger) (string, error) {
	created, err := fileutil.EnsureFile(l.inputPath)
	if err != nil {
		return "", services.Wrap(services.ErrInputUnavailable, "poller", "ensure input", l.inputPath, err)
	}
	if created {
		logging.WarnWithContext(logger, "now-playing file missing; created empty", "input_unavailable",
			logging.String("path", l.inputPath),
			logging.String(logging.FieldImpact, "no title until the streaming tool writes the file"))
	}
	data, err := os.ReadFile(l.inputPath)
	if err != nil {
		return "", services.Wrap(services.ErrInputUnavailable, "poller", "read input", l.inputPath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (l *Loop) rollover(ctx context.Context, logger *slog.Logger, now time.Time) error {
	var previous string
	rolled := false
	doc, err := l.store.Update(ctx, func(doc *state.Document) error {
		previous = doc.Month
		if !calendar.Rollover(doc, now) {
			return state.ErrNoChange
		}
		rolled = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("month rollover: %w", err)
	}
	if !rolled {
		return nil
	}
	logger.Info("calendar month changed",
		logging.String("from", previous),
		logging.String("to", doc.Month),
		logging.String(logging.FieldEventType, "calendar_reset"))
	l.renderAndPublish(ctx, logger, publish.ResetMessage(doc.Month))
	return nil
}

// adopt keeps a persisted session open across a restart when the file still
// shows the same line.
func (l *Loop) adopt(ctx context.Context, logger *slog.Logger, content string) (bool, error) {
	doc, err := l.store.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("read state: %w", err)
	}
	if !doc.HasActiveSession() || content == "" || doc.Current.SourceText != content {
		return false, nil
	}
	logger.Info("resuming persisted session",
		logging.String(logging.FieldTitle, doc.Current.Title),
		logging.Int("votes", doc.Votes.NumVotes),
		logging.String(logging.FieldSessionID, doc.Current.SessionID))
	return true, nil
}

func (l *Loop) resolve(ctx context.Context, logger *slog.Logger, content string) *state.TitleRecord {
	c := titleparse.Classify(content)
	switch c.Kind {
	case titleparse.Movie, titleparse.Episode:
	default:
		logger.Info("line is not a title", logging.String("kind", c.Kind.String()))
		return nil
	}
	record, err := l.resolver.Resolve(ctx, c)
	if err != nil {
		logging.WarnWithContext(logger, "title lookup failed", services.Kind(err),
			logging.Error(err),
			logging.String("query", c.Label()),
			logging.String(logging.FieldErrorHint, "check the line format or the TMDB key"),
			logging.String(logging.FieldImpact, "voting stays closed for this line"))
		return nil
	}
	return &record
}

// closeSession archives the active session when it received votes. The entry
// lands on the session's own start date and slot.
func (l *Loop) closeSession(doc *state.Document, now time.Time) *history.Record {
	if !doc.HasActiveSession() || doc.Votes.NumVotes <= 0 {
		return nil
	}
	session := *doc.Current
	started := session.StartTime.Time
	if started.IsZero() {
		started = now
	}
	slot := session.TimeSlot
	if slot != state.SlotDaytime && slot != state.SlotNightCinema {
		slot = l.slots.SlotFor(started)
	}
	votes := doc.Votes.NumVotes

	entry := ledger.CloseSession(doc)
	calendar.Archive(doc, started, slot, entry)

	return &history.Record{
		SessionID:   session.SessionID,
		Day:         calendar.DateKey(started),
		Slot:        string(slot),
		Title:       entry.Title,
		Year:        entry.Year,
		TMDBID:      entry.TMDBID,
		PosterURL:   entry.PosterURL,
		FinalRating: entry.FinalRating,
		NumVotes:    votes,
		StartedAt:   started,
		ClosedAt:    now,
	}
}

func (l *Loop) openSession(doc *state.Document, record *state.TitleRecord, content string, now time.Time) {
	if record == nil {
		doc.Current = nil
		return
	}
	doc.Current = &state.Session{
		TitleRecord: *record,
		TimeSlot:    l.slots.SlotFor(now),
		StartTime:   state.NewTimestamp(now),
		SessionID:   uuid.NewString(),
		SourceText:  content,
	}
}

func (l *Loop) recordHistory(ctx context.Context, logger *slog.Logger, rec history.Record) {
	if l.history == nil {
		return
	}
	if _, err := l.history.Record(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "history archive failed", "history_failure",
			logging.Error(err),
			logging.String(logging.FieldTitle, rec.Title),
			logging.String(logging.FieldImpact, "session missing from long-term history"))
	}
}

func (l *Loop) notifyClosed(ctx context.Context, logger *slog.Logger, rec history.Record) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.NotifySessionClosed(ctx, rec.Title, rec.Year, rec.FinalRating, rec.NumVotes); err != nil {
		logging.WarnWithContext(logger, "session notification failed", "notify_failure",
			logging.Error(err),
			logging.String(logging.FieldImpact, "final rating not announced"))
	}
}

// renderAndPublish regenerates the page and pushes it. Failures are logged;
// a page that failed to render is not published.
func (l *Loop) renderAndPublish(ctx context.Context, logger *slog.Logger, message string) {
	err := l.store.View(ctx, func(doc *state.Document) error {
		return l.page.WriteFile(doc, l.outputPath)
	})
	if err != nil {
		logging.ErrorWithContext(logger, "calendar render failed", "render_failure",
			logging.Error(err),
			logging.String("output", l.outputPath),
			logging.String(logging.FieldErrorHint, "check the template and output directory"))
		return
	}
	logger.Debug("calendar rendered", logging.String("output", l.outputPath))
	err = l.publisher.Publish(ctx, message)
	if err == nil {
		return
	}
	logger.Debug("publish skipped for this tick", logging.Error(err))
	if l.notifier == nil || !errors.Is(err, services.ErrPublish) {
		return
	}
	if nerr := l.notifier.NotifyPublishFailed(ctx, err, message); nerr != nil {
		logging.WarnWithContext(logger, "publish failure notification failed", "notify_failure",
			logging.Error(nerr),
			logging.String(logging.FieldImpact, "operator not alerted about the stale page"))
	}
}
