package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates a database written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Record is one closed session.
type Record struct {
	ID          int64
	SessionID   string
	Day         string
	Slot        string
	Title       string
	Year        string
	TMDBID      *int64
	PosterURL   string
	FinalRating float64
	NumVotes    int
	StartedAt   time.Time
	ClosedAt    time.Time
}

// Month returns the "YYYY-MM" the record's day belongs to.
func (r Record) Month() string {
	if len(r.Day) >= 7 {
		return r.Day[:7]
	}
	return ""
}

// Store is the SQLite archive of closed sessions. Unlike the state document
// it survives month rollover.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the archive at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// The vote command and the poll loop are separate processes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record appends a closed session.
func (s *Store) Record(ctx context.Context, rec Record) (int64, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return 0, errors.New("history record requires a title")
	}
	if len(rec.Day) < 7 {
		return 0, fmt.Errorf("invalid history day %q", rec.Day)
	}
	if rec.ClosedAt.IsZero() {
		rec.ClosedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
            session_id, month, day, slot, title, year, tmdb_id, poster_url,
            final_rating, num_votes, started_at, closed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(rec.SessionID),
		rec.Month(),
		rec.Day,
		rec.Slot,
		rec.Title,
		nullableString(rec.Year),
		nullableInt(rec.TMDBID),
		nullableString(rec.PosterURL),
		rec.FinalRating,
		rec.NumVotes,
		nullableTime(rec.StartedAt),
		rec.ClosedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert history record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Month lists the sessions of one "YYYY-MM" in calendar order.
func (s *Store) Month(ctx context.Context, month string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM sessions WHERE month = ? ORDER BY day, started_at, id`, month)
	if err != nil {
		return nil, fmt.Errorf("query history month: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Months lists the months with archived sessions, newest first.
func (s *Store) Months(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT month FROM sessions ORDER BY month DESC`)
	if err != nil {
		return nil, fmt.Errorf("query history months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var month string
		if err := rows.Scan(&month); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, month)
	}
	return months, rows.Err()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

const recordColumns = `id, session_id, day, slot, title, year, tmdb_id, poster_url,
    final_rating, num_votes, started_at, closed_at`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec       Record
			sessionID sql.NullString
			year      sql.NullString
			tmdbID    sql.NullInt64
			poster    sql.NullString
			startedAt sql.NullString
			closedAt  string
		)
		if err := rows.Scan(&rec.ID, &sessionID, &rec.Day, &rec.Slot, &rec.Title, &year, &tmdbID,
			&poster, &rec.FinalRating, &rec.NumVotes, &startedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		rec.SessionID = sessionID.String
		rec.Year = year.String
		rec.PosterURL = poster.String
		if tmdbID.Valid {
			id := tmdbID.Int64
			rec.TMDBID = &id
		}
		rec.StartedAt = parseTime(startedAt.String)
		rec.ClosedAt = parseTime(closedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
