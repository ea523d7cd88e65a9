package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/services"
	"github.com/Piravision/Votaciones/internal/state"
	"github.com/Piravision/Votaciones/internal/titleparse"
	"github.com/Piravision/Votaciones/internal/tmdb"
)

// DefaultImageBase prefixes poster paths returned by TMDB.
const DefaultImageBase = "https://image.tmdb.org/t/p/w185"

// UnknownYear is stored for series whose first air date is missing.
const UnknownYear = "N/A"

type cacheEntry struct {
	record  state.TitleRecord
	expires time.Time
}

// Resolver turns classified now-playing lines into title records.
type Resolver struct {
	searcher  tmdb.Searcher
	imageBase string
	logger    *slog.Logger

	mu       sync.Mutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
}

// NewResolver builds a resolver. An empty imageBase falls back to the TMDB
// w185 poster base.
func NewResolver(searcher tmdb.Searcher, imageBase string, logger *slog.Logger) *Resolver {
	imageBase = strings.TrimRight(strings.TrimSpace(imageBase), "/")
	if imageBase == "" {
		imageBase = DefaultImageBase
	}
	return &Resolver{
		searcher:  searcher,
		imageBase: imageBase,
		logger:    logging.NewComponentLogger(logger, "metadata"),
		cache:     make(map[string]cacheEntry),
		cacheTTL:  10 * time.Minute,
	}
}

// Resolve looks up a movie or episode. Anything that cannot be resolved,
// including transport failures, is reported as ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, c titleparse.Classification) (state.TitleRecord, error) {
	if c.Kind != titleparse.Movie && c.Kind != titleparse.Episode {
		return state.TitleRecord{}, services.Wrap(services.ErrNotFound, "metadata", "resolve", c.Kind.String()+" has no title", nil)
	}
	if r.searcher == nil {
		return state.TitleRecord{}, services.Wrap(services.ErrNotFound, "metadata", "resolve", "tmdb client unavailable", nil)
	}

	key := c.Kind.String() + "|" + strings.ToLower(c.Title) + "|" + c.Year
	if record, ok := r.cached(key); ok {
		return record, nil
	}

	var (
		record state.TitleRecord
		err    error
	)
	if c.Kind == titleparse.Movie {
		record, err = r.resolveMovie(ctx, c)
	} else {
		record, err = r.resolveEpisode(ctx, c)
	}
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return state.TitleRecord{}, err
		}
		return state.TitleRecord{}, services.Wrap(services.ErrNotFound, "metadata", "resolve", c.Label(), err)
	}

	r.store(key, record)
	r.logger.Debug("title resolved",
		logging.String(logging.FieldTitle, record.Title),
		logging.String("year", record.Year))
	return record, nil
}

func (r *Resolver) resolveMovie(ctx context.Context, c titleparse.Classification) (state.TitleRecord, error) {
	opts := tmdb.SearchOptions{}
	if year, err := strconv.Atoi(c.Year); err == nil {
		opts.Year = year
	}
	resp, err := r.searcher.SearchMovie(ctx, c.Title, opts)
	if err != nil {
		return state.TitleRecord{}, fmt.Errorf("search movie: %w", err)
	}
	if resp == nil || len(resp.Results) == 0 {
		return state.TitleRecord{}, services.Wrap(services.ErrNotFound, "metadata", "search movie", "no results for "+c.Label(), nil)
	}

	best := pickMovie(resp.Results, c.Title, c.Year)
	year := c.Year
	if releaseYear := yearOf(best.ReleaseDate); releaseYear != "" {
		year = releaseYear
	}
	title := strings.TrimSpace(best.DisplayTitle())
	if title == "" {
		title = c.Title
	}
	return r.record(title, year, best.ID, best.PosterPath), nil
}

func (r *Resolver) resolveEpisode(ctx context.Context, c titleparse.Classification) (state.TitleRecord, error) {
	resp, err := r.searcher.SearchTV(ctx, c.Title, tmdb.SearchOptions{})
	if err != nil {
		return state.TitleRecord{}, fmt.Errorf("search tv: %w", err)
	}
	if resp == nil || len(resp.Results) == 0 {
		return state.TitleRecord{}, services.Wrap(services.ErrNotFound, "metadata", "search tv", "no results for "+c.Title, nil)
	}
	first := resp.Results[0]

	details, err := r.searcher.GetTVDetails(ctx, first.ID)
	if err != nil {
		return state.TitleRecord{}, fmt.Errorf("tv details %d: %w", first.ID, err)
	}
	if details == nil {
		details = &first
	}

	title := strings.TrimSpace(details.DisplayTitle())
	if title == "" {
		title = c.Title
	}
	year := yearOf(details.FirstAirDate)
	if year == "" {
		year = UnknownYear
	}
	poster := details.PosterPath
	if poster == "" {
		poster = first.PosterPath
	}
	return r.record(title, year, first.ID, poster), nil
}

func (r *Resolver) record(title, year string, id int64, posterPath string) state.TitleRecord {
	rec := state.TitleRecord{Title: title, Year: year}
	if id > 0 {
		tmdbID := id
		rec.TMDBID = &tmdbID
	}
	if posterPath = strings.TrimSpace(posterPath); posterPath != "" {
		if !strings.HasPrefix(posterPath, "/") {
			posterPath = "/" + posterPath
		}
		rec.PosterURL = r.imageBase + posterPath
	}
	return rec
}

func (r *Resolver) cached(key string) (state.TitleRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return state.TitleRecord{}, false
	}
	return entry.record, true
}

func (r *Resolver) store(key string, record state.TitleRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = cacheEntry{record: record, expires: time.Now().Add(r.cacheTTL)}
}

// pickMovie prefers a result whose title or original title matches the query
// once accents and punctuation are folded, with the release year agreeing
// when one was given. Otherwise the first result wins.
func pickMovie(results []tmdb.Result, title, year string) tmdb.Result {
	want := foldTitle(title)
	for _, res := range results {
		if want != foldTitle(res.Title) && want != foldTitle(res.OriginalTitle) {
			continue
		}
		if year != "" && yearOf(res.ReleaseDate) != "" && yearOf(res.ReleaseDate) != year {
			continue
		}
		return res
	}
	return results[0]
}

func foldTitle(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}
