// Package tmdb wraps the subset of The Movie Database v3 API the bot needs:
// movie search, TV search, and TV series details.
package tmdb
