// Package domain holds the data model shared across the search core: parsed
// queries, metadata releases, unified music sources, and the records that
// track adapter health and session telemetry.
package domain

import "time"

// SearchType classifies what a parsed query is asking for.
type SearchType string

const (
	SearchTypeSong        SearchType = "song"
	SearchTypeAlbum       SearchType = "album"
	SearchTypeDiscography SearchType = "discography"
	SearchTypeArtist      SearchType = "artist"
	SearchTypeUnknown     SearchType = "unknown"
)

// ParsedQuery is the structured representation of a user's search intent.
// Invariant: if SearchType is SearchTypeSong, Song is non-empty; if
// SearchTypeAlbum, Album is non-empty.
type ParsedQuery struct {
	Artist           string
	Song             string
	Album            string
	Year             int
	SearchType       SearchType
	Confidence       float64
	Ambiguous        bool
	FormatPreference string
}

// MetadataRelease is a single hit from the canonical metadata service.
type MetadataRelease struct {
	MBID       string
	Artist     string
	Title      string
	Album      string
	Year       int
	DurationMS int
	Score      float64 // advisor/server relevance score, 0-100
}

// GroupedRelease is a MetadataRelease annotated for user disambiguation.
type GroupedRelease struct {
	Label       string
	Release     MetadataRelease
	Reason      string
	Recommended bool
	TrackCount  int
}

// SourceKind identifies which adapter variant produced a MusicSource.
type SourceKind string

const (
	SourceKindTorrent      SourceKind = "torrent"
	SourceKindStreamYT     SourceKind = "stream_youtube"
	SourceKindStreamOther  SourceKind = "stream_other"
	SourceKindLocal        SourceKind = "local"
)

// MusicSource is the unified result shape every adapter normalizes into.
// Torrent results MUST carry a MagnetURI; non-torrent results leave Seeders
// and Leechers nil. QualityScore is a pure function of the other fields and
// may be recomputed idempotently (see package quality).
type MusicSource struct {
	ID         string // dedup identity, see DeriveIdentity
	SourceKind SourceKind
	Title      string
	Indexer    string
	Format     string // FLAC, MP3, AAC, ALAC, OPUS, OGG, ...
	URL        string

	// Torrent fields.
	MagnetURI  string
	SizeBytes  int64
	Seeders    *int
	Leechers   *int
	UploadedAt *time.Time

	// Stream fields.
	Codec           string
	BitrateKbps     int
	ThumbnailURL    string
	DurationSeconds int

	QualityScore float64
}

// RankedSource is a MusicSource placed in a ranked output list.
type RankedSource struct {
	Source      MusicSource
	Rank        int
	Explanation string
	Tags        []string // closed vocabulary: best, lossless, hi-res, fast, popular, stream
}

// CandidateReason pairs a candidate with why it was shown or rejected.
type CandidateReason struct {
	Source MusicSource
	Reason string
}

// SelectionDecision is C8's output: one chosen source plus reasoning.
// Invariant: Selected is a member of the input list; if FallbackUsed,
// Selected is the argmax of QualityScore.
type SelectionDecision struct {
	Selected      MusicSource
	Reasoning     string
	TopCandidates []CandidateReason // <= 3
	Rejected      []CandidateReason // <= 5
	FallbackUsed  bool
	AlbumMismatch bool
}

// AdapterHealthRecord tracks the circuit-breaker state for one adapter.
type AdapterHealthRecord struct {
	ConsecutiveFailures int
	LastSuccessTime     time.Time
	LastFailureTime     time.Time
	Threshold           int
	Cooldown            time.Duration
}

// AdapterVariant names the wire-protocol shape a Source Profile entry uses.
type AdapterVariant string

const (
	AdapterVariantTorznab AdapterVariant = "torznab"
	AdapterVariantHTML    AdapterVariant = "html"
	AdapterVariantStream  AdapterVariant = "stream"
)

// AdapterConfig describes one configured adapter inside a Source Profile.
type AdapterConfig struct {
	Name       string
	Type       AdapterVariant
	Enabled    bool
	BaseURL    string
	APIKey     string
	IndexerID  string
	Categories []int
	Timeout    time.Duration
}

// SourceProfile is a named ordered list of adapter configurations.
type SourceProfile struct {
	Description string
	Adapters    []AdapterConfig
}

// SearchRequest is what the Search Engine (C4) accepts.
type SearchRequest struct {
	Query       string
	FormatFilter string
	MinSeeders  int
	Strict      bool // strict=true disables "retry any format on zero results"
}

// SearchResponse is the Search Engine's (and HTTP layer's) output envelope.
type SearchResponse struct {
	Query         string
	SQLQuery      string
	TotalFound    int
	SearchTimeMS  int64
	Results       []RankedSource
	HealthySources []string
	SkippedSources []string
}
