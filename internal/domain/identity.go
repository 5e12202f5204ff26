package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
)

// DeriveIdentity implements the dedup identity rule (spec §3): for a torrent
// result, the lowercase infohash extracted from the magnet URI; failing
// that, a SHA-1 prefix of the URL. For a stream, the upstream track/video id
// (taken from URL). Two results with identical identity are duplicates
// regardless of title. Empty string means "no identity" (never deduped).
func DeriveIdentity(source MusicSource) string {
	if hash := InfoHashFromMagnet(source.MagnetURI); hash != "" {
		return hash
	}
	if source.SourceKind != SourceKindTorrent {
		if id := strings.TrimSpace(source.URL); id != "" {
			return id
		}
	}
	if url := strings.TrimSpace(source.URL); url != "" {
		sum := sha1.Sum([]byte(url))
		return hex.EncodeToString(sum[:8])
	}
	return ""
}

// InfoHashFromMagnet extracts and lowercases the xt=urn:btih:<hex> infohash
// from a magnet URI. Returns "" if the URI is empty or has no btih xt param.
func InfoHashFromMagnet(magnet string) string {
	value := strings.TrimSpace(magnet)
	if value == "" {
		return ""
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	for _, xt := range parsed.Query()["xt"] {
		hash := NormalizeInfoHash(xt)
		if hash != "" {
			return hash
		}
	}
	return ""
}

// NormalizeInfoHash lowercases and strips the "urn:btih:" prefix.
func NormalizeInfoHash(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(strings.ToLower(value), "urn:btih:")
	return value
}
