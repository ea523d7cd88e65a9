package votecmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/fileutil"
	"github.com/Piravision/Votaciones/internal/ledger"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/services"
	"github.com/Piravision/Votaciones/internal/state"
)

// ReasonInternal marks a vote attempt that failed for reasons unrelated to
// the input.
const ReasonInternal ledger.Reason = "internal error"

const internalMessage = "Error interno al registrar el voto, inténtalo de nuevo."

// Page re-renders the calendar after an accepted vote.
type Page interface {
	WriteFile(doc *state.Document, path string) error
}

// Handler registers one vote per call and leaves the reply where the chat
// integration reads it.
type Handler struct {
	store        *state.Store
	page         Page
	outputHTML   string
	responsePath string
	tracePath    string
	logger       *slog.Logger
	now          func() time.Time
}

// New builds a handler. page may be nil to skip re-rendering.
func New(cfg *config.Config, store *state.Store, page Page, logger *slog.Logger) *Handler {
	return &Handler{
		store:        store,
		page:         page,
		outputHTML:   cfg.Paths.OutputHTML,
		responsePath: cfg.Paths.VoteResponseFile,
		tracePath:    cfg.Paths.VoteTraceFile,
		logger:       logging.NewComponentLogger(logger, "votecmd"),
		now:          time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (h *Handler) SetClock(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

// Handle validates and records a vote. It always returns an outcome with a
// message, even when the state could not be updated.
func (h *Handler) Handle(ctx context.Context, voter, rawScore string) ledger.Outcome {
	now := h.now()
	logger := logging.WithContext(ctx, h.logger).With(logging.String(logging.FieldVoter, voter))

	var outcome ledger.Outcome
	doc, err := h.store.Update(ctx, func(doc *state.Document) error {
		outcome = ledger.CastVote(doc, voter, rawScore, now)
		if !outcome.Accepted {
			return state.ErrNoChange
		}
		return nil
	})
	if err != nil {
		logging.ErrorWithContext(logger, "vote could not be recorded", services.Kind(err),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state file and its lock"))
		outcome = ledger.Outcome{Reason: ReasonInternal, Message: internalMessage}
	}

	switch {
	case outcome.Accepted:
		logger.Info("vote accepted",
			logging.Float64("score", outcome.Score),
			logging.String(logging.FieldTitle, doc.Current.Title),
			logging.Int("votes", doc.Votes.NumVotes))
		h.render(ctx, logger)
	case outcome.Reason != ReasonInternal:
		logger.Info("vote rejected",
			logging.String("reason", string(outcome.Reason)),
			logging.String("score_text", rawScore),
			logging.String(logging.FieldEventType, "validation_failure"))
	}

	h.writeResponse(logger, outcome)
	h.trace(logger, now, voter, rawScore, outcome)
	return outcome
}

// render rewrites the page from the stored document while holding the
// shared lock, so a concurrent session change cannot be overwritten by an
// older snapshot.
func (h *Handler) render(ctx context.Context, logger *slog.Logger) {
	if h.page == nil || strings.TrimSpace(h.outputHTML) == "" {
		return
	}
	err := h.store.View(ctx, func(doc *state.Document) error {
		return h.page.WriteFile(doc, h.outputHTML)
	})
	if err != nil {
		logging.WarnWithContext(logger, "calendar render after vote failed", "render_failure",
			logging.Error(err),
			logging.String(logging.FieldImpact, "live vote count on the page is stale until the next change"))
	}
}

func (h *Handler) writeResponse(logger *slog.Logger, outcome ledger.Outcome) {
	if strings.TrimSpace(h.responsePath) == "" {
		return
	}
	if err := fileutil.WriteFileAtomic(h.responsePath, []byte(outcome.Message+"\n"), 0o644); err != nil {
		logging.ErrorWithContext(logger, "vote response not written", "unexpected_failure",
			logging.Error(err),
			logging.String("path", h.responsePath))
	}
}

func (h *Handler) trace(logger *slog.Logger, now time.Time, voter, rawScore string, outcome ledger.Outcome) {
	if strings.TrimSpace(h.tracePath) == "" {
		return
	}
	line := TraceLine(now, voter, rawScore, outcome)
	if err := fileutil.AppendLine(h.tracePath, line); err != nil {
		logger.Warn("vote trace not written", logging.Error(err), logging.String("path", h.tracePath))
	}
}

// TraceLine formats one diagnostic record of a vote attempt.
func TraceLine(now time.Time, voter, rawScore string, outcome ledger.Outcome) string {
	status := "rechazado"
	if outcome.Accepted {
		status = "aceptado"
	}
	return fmt.Sprintf("%s voter=%q score=%q result=%s reason=%q message=%q",
		now.Format(time.RFC3339), voter, rawScore, status, outcome.Reason, outcome.Message)
}

// IsInternal reports whether the outcome came from an unexpected failure.
func IsInternal(outcome ledger.Outcome) bool {
	return outcome.Reason == ReasonInternal
}
