package titleparse

import (
	"regexp"
	"strings"
)

// Kind labels what a now-playing line announces.
type Kind int

const (
	Unrecognized Kind = iota
	Announcement
	Movie
	Episode
)

func (k Kind) String() string {
	switch k {
	case Announcement:
		return "announcement"
	case Movie:
		return "movie"
	case Episode:
		return "episode"
	default:
		return "unrecognized"
	}
}

// announcementPrefixes are matched case-insensitively against the trimmed line.
var announcementPrefixes = []string{"anuncio", "anunciop"}

var (
	moviePattern   = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)
	episodePattern = regexp.MustCompile(`(?i)S(\d{2})E(\d{2})`)
)

// Classification is the parsed form of a now-playing line. Only the fields that
// belong to Kind are populated.
type Classification struct {
	Kind    Kind
	Raw     string
	Title   string
	Year    string
	Season  string
	Episode string
}

// Classify inspects a now-playing line. Announcements win over titles, movies
// (trailing "(YYYY)") win over episodes ("S##E##").
func Classify(text string) Classification {
	raw := strings.TrimSpace(text)
	result := Classification{Kind: Unrecognized, Raw: raw}
	if raw == "" {
		return result
	}

	if IsAnnouncement(raw) {
		result.Kind = Announcement
		return result
	}

	if m := moviePattern.FindStringSubmatch(raw); m != nil {
		title := strings.TrimSpace(m[1])
		if title == "" {
			return result
		}
		result.Kind = Movie
		result.Title = title
		result.Year = m[2]
		return result
	}

	if loc := episodePattern.FindStringSubmatchIndex(raw); loc != nil {
		series := strings.TrimSpace(raw[:loc[0]])
		series = strings.TrimRight(series, " -–:")
		if series == "" {
			return result
		}
		result.Kind = Episode
		result.Title = series
		result.Season = raw[loc[2]:loc[3]]
		result.Episode = raw[loc[4]:loc[5]]
		return result
	}

	return result
}

// IsAnnouncement reports whether the line is a channel announcement rather than a title.
func IsAnnouncement(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range announcementPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// Label renders the classification for logs, e.g. "Breaking Bad S03E05".
func (c Classification) Label() string {
	switch c.Kind {
	case Movie:
		return c.Title + " (" + c.Year + ")"
	case Episode:
		return c.Title + " S" + c.Season + "E" + c.Episode
	default:
		return c.Raw
	}
}
