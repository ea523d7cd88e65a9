package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Piravision/Votaciones/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "es-ES"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := tmdb.New("key", " ", "es-ES"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchMovieSendsYearAndLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("language") != "es-ES" || q.Get("year") != "2010" || q.Get("query") != "Inception" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":27205,"title":"Origen","release_date":"2010-07-15","poster_path":"/p.jpg"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "es-ES")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	resp, err := client.SearchMovie(context.Background(), "Inception", tmdb.SearchOptions{Year: 2010})
	if err != nil {
		t.Fatalf("SearchMovie returned error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Origen" || resp.Results[0].PosterPath != "/p.jpg" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestSearchTVOmitsYearWhenZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Has("first_air_date_year") {
			t.Errorf("did not expect year filter: %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":[{"id":1396,"name":"Breaking Bad"}]}`))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	resp, err := client.SearchTV(context.Background(), "Breaking Bad", tmdb.SearchOptions{})
	if err != nil {
		t.Fatalf("SearchTV returned error: %v", err)
	}
	if resp.Results[0].DisplayTitle() != "Breaking Bad" {
		t.Fatalf("unexpected result: %#v", resp.Results[0])
	}
}

func TestGetTVDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1396" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20","poster_path":"/bb.jpg"}`))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	details, err := client.GetTVDetails(context.Background(), 1396)
	if err != nil {
		t.Fatalf("GetTVDetails returned error: %v", err)
	}
	if details.MediaType != "tv" || details.FirstAirDate != "2008-01-20" {
		t.Fatalf("unexpected details: %#v", details)
	}
	if _, err := client.GetTVDetails(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-positive id")
	}
}

func TestSearchMovieHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_code":500}`))
	}))
	t.Cleanup(server.Close)

	client, _ := tmdb.New("key", server.URL, "")
	if _, err := client.SearchMovie(context.Background(), "fail", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error when TMDB returns non-200")
	}
}

func TestSearchMovieEmptyQuery(t *testing.T) {
	client, _ := tmdb.New("key", "https://example.com", "")
	if _, err := client.SearchMovie(context.Background(), "  ", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}
