package apihttp

import (
	"fmt"

	"musicsearch/searchcore/internal/domain"
)

// searchRequestBody is the wire shape for POST /search and the streaming
// channel's initial message (spec §6).
type searchRequestBody struct {
	Query        string `json:"query"`
	FormatFilter string `json:"format_filter,omitempty"`
	MinSeeders   *int   `json:"min_seeders,omitempty"`
	Limit        *int   `json:"limit,omitempty"`
}

type searchResponseBody struct {
	Query          string           `json:"query"`
	SQLQuery       string           `json:"sql_query,omitempty"`
	TotalFound     int              `json:"total_found"`
	SearchTimeMS   int64            `json:"search_time_ms"`
	Results        []rankedWire     `json:"results"`
	HealthySources []string         `json:"healthy_sources,omitempty"`
	SkippedSources []string         `json:"skipped_sources,omitempty"`
}

type rankedWire struct {
	Rank        int         `json:"rank"`
	Source      sourceWire  `json:"source"`
	Explanation string      `json:"explanation"`
	Tags        []string    `json:"tags"`
}

type sourceWire struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url,omitempty"`
	SourceType      string   `json:"source_type"`
	Format          string   `json:"format,omitempty"`
	QualityScore    float64  `json:"quality_score"`
	Indexer         string   `json:"indexer,omitempty"`
	MagnetLink      string   `json:"magnet_link,omitempty"`
	SizeBytes       *int64   `json:"size_bytes,omitempty"`
	SizeFormatted   string   `json:"size_formatted,omitempty"`
	Seeders         *int     `json:"seeders,omitempty"`
	Leechers        *int     `json:"leechers,omitempty"`
	Codec           string   `json:"codec,omitempty"`
	BitrateKbps     *int     `json:"bitrate,omitempty"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
}

func toSearchResponseBody(resp domain.SearchResponse) searchResponseBody {
	results := make([]rankedWire, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = toRankedWire(r)
	}
	return searchResponseBody{
		Query:          resp.Query,
		SQLQuery:       resp.SQLQuery,
		TotalFound:     resp.TotalFound,
		SearchTimeMS:   resp.SearchTimeMS,
		Results:        results,
		HealthySources: resp.HealthySources,
		SkippedSources: resp.SkippedSources,
	}
}

func toRankedWire(r domain.RankedSource) rankedWire {
	src := r.Source
	wire := sourceWire{
		ID:           domain.DeriveIdentity(src),
		Title:        src.Title,
		URL:          src.URL,
		SourceType:   string(src.SourceKind),
		Format:       src.Format,
		QualityScore: src.QualityScore,
		Indexer:      src.Indexer,
		MagnetLink:   src.MagnetURI,
		Codec:        src.Codec,
		ThumbnailURL: src.ThumbnailURL,
	}
	if src.SizeBytes > 0 {
		size := src.SizeBytes
		wire.SizeBytes = &size
		wire.SizeFormatted = formatSize(size)
	}
	if src.Seeders != nil {
		wire.Seeders = src.Seeders
	}
	if src.Leechers != nil {
		wire.Leechers = src.Leechers
	}
	if src.BitrateKbps > 0 {
		bitrate := src.BitrateKbps
		wire.BitrateKbps = &bitrate
	}
	if src.DurationSeconds > 0 {
		duration := src.DurationSeconds
		wire.DurationSeconds = &duration
	}
	return rankedWire{Rank: r.Rank, Source: wire, Explanation: r.Explanation, Tags: r.Tags}
}

func formatSize(bytes int64) string {
	const unit = 1024.0
	value := float64(bytes)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", bytes, units[i])
	}
	return fmt.Sprintf("%.2f %s", value, units[i])
}

type resolveRequestBody struct {
	VideoID string `json:"video_id"`
}

type resolveResponseBody struct {
	VideoID   string `json:"video_id"`
	StreamURL string `json:"stream_url,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type streamMessage struct {
	Type    string      `json:"type"`
	Percent int         `json:"percent,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
