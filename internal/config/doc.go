// Package config loads, normalizes, and validates cinebot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TMDB_API_KEY environment
// fallback. The Config type centralizes every knob the poll loop, the vote
// handler, and the CLI need, so components receive an explicit struct at
// construction instead of reading globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
