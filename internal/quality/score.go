// Package quality computes MusicSource.QualityScore: a pure function of a
// source's format, bitrate, size, and seeder fields, clamped to [0, 1000].
// It never reads global or time-varying state.
package quality

import (
	"regexp"
	"strings"

	"musicsearch/searchcore/internal/domain"
)

const maxScore = 1000

var hiResMarkers = []string{"24/192", "24/176", "24/96", "24/88", "24bit", "24-bit", "24 bit"}
var hiBitDepthMarkers = []string{"16bit", "16-bit", "16 bit", "16/44", "16/48"}
var vinylMarkers = regexp.MustCompile(`(?i)\b(vinyl|lp)\b`)

// Score computes QualityScore for a MusicSource. Callers should assign the
// result back to source.QualityScore; it is safe to recompute at any time.
func Score(source domain.MusicSource) float64 {
	var total float64
	if source.SourceKind == domain.SourceKindTorrent {
		total = formatBonus(source) + seederBonus(source) + sizeBonus(source)
	} else {
		total = codecBonus(source.Codec) + bitrateBonus(source.BitrateKbps) + sourceBonus()
	}
	if total > maxScore {
		return maxScore
	}
	if total < 0 {
		return 0
	}
	return total
}

func formatBonus(source domain.MusicSource) float64 {
	format := strings.ToUpper(strings.TrimSpace(source.Format))
	title := strings.ToLower(source.Title)

	var base float64
	switch format {
	case "FLAC":
		base = 200
		if strings.Contains(title, "dsd") {
			base += 100
		}
		if containsAny(title, hiResMarkers) {
			base += 60
		} else if containsAny(title, hiBitDepthMarkers) {
			base += 30
		}
		if vinylMarkers.MatchString(title) {
			base += 15
		}
	case "ALAC":
		base = 190
	case "MP3":
		switch {
		case strings.Contains(title, "320"):
			base = 150
		case strings.Contains(strings.ToUpper(title), "V0"):
			base = 140
		case strings.Contains(title, "256"):
			base = 120
		default:
			base = 80
		}
	default:
		base = 80
	}
	return base
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func seederBonus(source domain.MusicSource) float64 {
	if source.Seeders == nil {
		return 0
	}
	bonus := float64(*source.Seeders) * 2
	if bonus > 100 {
		return 100
	}
	return bonus
}

func sizeBonus(source domain.MusicSource) float64 {
	sizeMB := float64(source.SizeBytes) / (1024 * 1024)
	bonus := sizeMB / 10
	if bonus > 50 {
		return 50
	}
	return bonus
}

func codecBonus(codec string) float64 {
	switch strings.ToUpper(strings.TrimSpace(codec)) {
	case "FLAC":
		return 200
	case "OPUS":
		return 160
	case "AAC", "M4A":
		return 140
	case "VORBIS":
		return 120
	case "MP3":
		return 100
	default:
		return 80
	}
}

func bitrateBonus(bitrateKbps int) float64 {
	if bitrateKbps <= 0 {
		return 50
	}
	bonus := float64(bitrateKbps) / 320 * 100
	if bonus > 100 {
		return 100
	}
	return bonus
}

func sourceBonus() float64 {
	return 50
}
