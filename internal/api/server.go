package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Piravision/Votaciones/internal/ledger"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/render"
	"github.com/Piravision/Votaciones/internal/services"
	"github.com/Piravision/Votaciones/internal/state"
)

const maxVoteBody = 4 << 10

// Voter registers a vote; *votecmd.Handler satisfies it.
type Voter interface {
	Handle(ctx context.Context, voter, rawScore string) ledger.Outcome
}

// Server exposes status, leaderboard and vote registration over HTTP so
// the chat integration can vote without spawning a process.
type Server struct {
	bind   string
	store  *state.Store
	voter  Voter
	logger *slog.Logger

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New builds the server. It does not listen until Start.
func New(bind string, store *state.Store, voter Voter, logger *slog.Logger) *Server {
	s := &Server{
		bind:   strings.TrimSpace(bind),
		store:  store,
		voter:  voter,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	s.handler = s.wrap(s.routes())
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/api/votes", s.handleVote).Methods(http.MethodPost)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	return router
}

func (s *Server) wrap(router http.Handler) http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)
	return handlers.CustomLoggingHandler(io.Discard, recovery(router), s.logRequest)
}

func (s *Server) logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	s.logger.Debug("api request",
		logging.String("method", params.Request.Method),
		logging.String("path", params.URL.Path),
		logging.Int("status", params.StatusCode),
		logging.Int("bytes", params.Size),
		logging.Duration("elapsed", time.Since(params.TimeStamp)))
}

// Start listens on the configured address and shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Read(r.Context())
	if err != nil {
		s.logger.Error("status read failed", logging.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, statusFromDocument(doc))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Read(r.Context())
	if err != nil {
		s.logger.Error("leaderboard read failed", logging.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}
	limit := render.LeaderboardSize
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	rows := render.TopVoters(doc.Leaderboard, limit)
	resp := LeaderboardResponse{Entries: make([]LeaderboardEntry, 0, len(rows))}
	for i, row := range rows {
		resp.Entries = append(resp.Entries, LeaderboardEntry{Rank: i + 1, Voter: row.Voter, Count: row.Count})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBody))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	ctx := services.WithRequestID(r.Context(), requestID)
	outcome := s.voter.Handle(ctx, req.Voter, req.Score)

	var status int
	switch {
	case outcome.Accepted:
		status = http.StatusCreated
	case outcome.Reason == ledger.ReasonDuplicate, outcome.Reason == ledger.ReasonClosed:
		status = http.StatusConflict
	case outcome.Reason == ledger.ReasonFormat, outcome.Reason == ledger.ReasonRange:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, VoteResponse{
		Accepted: outcome.Accepted,
		Reason:   string(outcome.Reason),
		Message:  outcome.Message,
	})
}

func statusFromDocument(doc *state.Document) Status {
	status := Status{
		Month:    doc.Month,
		Active:   doc.HasActiveSession(),
		NumVotes: doc.Votes.NumVotes,
		Average:  ledger.Average(doc.Votes),
	}
	if !status.Active {
		return status
	}
	current := doc.Current
	status.Session = &Session{
		ID:        current.SessionID,
		Title:     current.Title,
		Year:      current.Year,
		TMDBID:    current.TMDBID,
		PosterURL: current.PosterURL,
		Slot:      string(current.TimeSlot),
	}
	if !current.StartTime.IsZero() {
		status.Session.StartedAt = current.StartTime.Format(dateTimeFormat)
	}
	return status
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
