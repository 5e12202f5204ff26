package orchestrator

import (
	"regexp"
	"strings"
)

var (
	yearRe    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	spacesRe  = regexp.MustCompile(`\s+`)
)

// sanitizeForTorrent cleans an album/title string before it is folded into
// a torrent search query (spec §4.9a): truncate at the first colon, strip
// four-digit years and bracketed/parenthesized substrings, collapse
// whitespace.
func sanitizeForTorrent(s string) string {
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	s = yearRe.ReplaceAllString(s, "")
	s = bracketRe.ReplaceAllString(s, "")
	s = parenRe.ReplaceAllString(s, "")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// buildTorrentQuery emits "{artist} {sanitized}" preferring album over song
// unless preferSongOnly is set.
func buildTorrentQuery(artist, album, song string, preferSongOnly bool) string {
	target := album
	if preferSongOnly || strings.TrimSpace(album) == "" {
		target = song
	}
	sanitized := sanitizeForTorrent(target)
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return sanitized
	}
	if sanitized == "" {
		return artist
	}
	return artist + " " + sanitized
}
