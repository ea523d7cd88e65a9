// Package titleparse classifies the single "now playing" line written by the
// streaming software into an announcement, a movie ("Title (YYYY)"), or a TV
// episode ("Series S##E##").
package titleparse
