// Package musicmeta extracts format, bitrate, source-medium, and size
// information from a free-text result title via pure, case-insensitive
// regex matching. Every function here is deterministic and side-effect
// free: same title in, same fields out, always.
package musicmeta

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	formatRe      = regexp.MustCompile(`(?i)\b(FLAC|MP3|AAC|ALAC|OGG|Opus)\b`)
	bitrateRe     = regexp.MustCompile(`(?i)\b(320|256|192|V0|V2)\s*(?:kbps)?\b`)
	sourceRe      = regexp.MustCompile(`(?i)\b(WEB|CD|Vinyl|DVD|BD)\b`)
	sizeRe        = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(GB|MB|KB)`)
	torznabScanRe = regexp.MustCompile(`(?i)\b(flac|24bit|mp3|320k|cbr|aac)\b`)
)

// torznabCategoryFormat maps a Torznab music category to the format it
// implies when the title itself carries no format token (spec §4.1 rule 3).
var torznabCategoryFormat = map[int]string{
	3040: "FLAC",
	3010: "MP3",
	3030: "AAC",
}

var sourceCanonical = map[string]string{
	"web":   "WEB",
	"cd":    "CD",
	"vinyl": "Vinyl",
	"dvd":   "DVD",
	"bd":    "BD",
}

// ExtractFormat returns the first recognized audio format token, uppercased,
// or "" if none is present.
func ExtractFormat(title string) string {
	m := formatRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// ExtractBitrate returns the first recognized bitrate/quality tier token,
// uppercased ("320", "256", "192", "V0", "V2"), or "" if none is present.
func ExtractBitrate(title string) string {
	m := bitrateRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// ExtractSourceMedium returns the first recognized source-medium token,
// normalized to its canonical casing ("Vinyl" keeps mixed case, the rest are
// uppercased), or "" if none is present.
func ExtractSourceMedium(title string) string {
	m := sourceRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	canonical, ok := sourceCanonical[strings.ToLower(m[1])]
	if !ok {
		return strings.ToUpper(m[1])
	}
	return canonical
}

var sizeUnitBytes = map[string]int64{
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

// ExtractSizeBytes parses a "<number>[,.]<number>? (GB|MB|KB)" occurrence,
// treating a comma as a decimal separator, and returns the size in bytes.
// Returns 0 if no size pattern is found or the number fails to parse.
func ExtractSizeBytes(title string) int64 {
	m := sizeRe.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	numeric := strings.Replace(m[1], ",", ".", 1)
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0
	}
	unitBytes, ok := sizeUnitBytes[strings.ToUpper(m[2])]
	if !ok {
		return 0
	}
	return int64(value * float64(unitBytes))
}

// FormatFromCategory infers a format when the title carries no recognized
// format token, from the Torznab category of the result (spec §4.1 rule 3):
// 3040 maps to FLAC, 3010 to MP3, 3030 to AAC; 3000/3050 (and any other
// music category) fall back to a broader scan of the title for
// flac/24bit/mp3/320k/cbr/aac. Returns "" if nothing matches.
func FormatFromCategory(category int, title string) string {
	if mapped, ok := torznabCategoryFormat[category]; ok {
		return mapped
	}
	m := torznabScanRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	token := strings.ToLower(m[1])
	switch {
	case token == "flac" || token == "24bit":
		return "FLAC"
	case token == "mp3" || token == "320k" || token == "cbr":
		return "MP3"
	case token == "aac":
		return "AAC"
	default:
		return ""
	}
}
