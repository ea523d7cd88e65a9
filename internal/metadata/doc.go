// Package metadata resolves classified now-playing lines against TMDB into
// the title records stored with each session. Lookups are cached briefly so
// a restart or repeated line does not hit the API again.
package metadata
