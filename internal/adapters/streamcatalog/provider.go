// Package streamcatalog implements the streaming-catalog Source Adapter
// variant (spec §4.1): a vendor JSON API returning tracks with a fixed
// codec/bitrate the catalog always serves, plus a separate stream-URL
// resolution operation for playback.
package streamcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"musicsearch/searchcore/internal/domain"
)

const defaultUserAgent = "musicsearchcore/1.0"

// Config carries the vendor-specific defaults a given catalog serves at a
// fixed encoding - real streaming catalogs do not expose per-track codec
// choice through search, only through playback negotiation.
type Config struct {
	Client          *http.Client
	UserAgent       string
	DefaultCodec    string
	DefaultBitrate  int
	SourceKind      domain.SourceKind
}

type Provider struct {
	client         *http.Client
	userAgent      string
	defaultCodec   string
	defaultBitrate int
	sourceKind     domain.SourceKind
	name           string
}

func NewProvider(name string, cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	codec := cfg.DefaultCodec
	if codec == "" {
		codec = "AAC"
	}
	bitrate := cfg.DefaultBitrate
	if bitrate <= 0 {
		bitrate = 256
	}
	kind := cfg.SourceKind
	if kind == "" {
		kind = domain.SourceKindStreamOther
	}
	return &Provider{
		client:         client,
		userAgent:      userAgent,
		defaultCodec:   codec,
		defaultBitrate: bitrate,
		sourceKind:     kind,
		name:           name,
	}
}

func (p *Provider) Name() string { return p.name }

type searchResponse struct {
	Tracks []trackEntry `json:"tracks"`
}

type trackEntry struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	DurationSeconds int    `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url"`
	Codec           string `json:"codec"`
	BitrateKbps     int    `json:"bitrate_kbps"`
	WatchURL        string `json:"watch_url"`
}

func (p *Provider) Search(ctx context.Context, query string, config domain.AdapterConfig) ([]domain.MusicSource, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("streamcatalog adapter %q: base_url not configured", config.Name)
	}
	uri, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid streamcatalog endpoint: %w", err)
	}
	uri.Path = strings.TrimRight(uri.Path, "/") + "/search"
	values := uri.Query()
	values.Set("q", strings.TrimSpace(query))
	uri.RawQuery = values.Encode()

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")
	if config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("streamcatalog %q returned status %d", config.Name, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*1024*1024)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid streamcatalog response: %w", err)
	}

	results := make([]domain.MusicSource, 0, len(parsed.Tracks))
	for _, track := range parsed.Tracks {
		if source, ok := p.trackToSource(track, config.Name); ok {
			results = append(results, source)
		}
	}
	return results, nil
}

func (p *Provider) trackToSource(track trackEntry, indexerName string) (domain.MusicSource, bool) {
	if strings.TrimSpace(track.ID) == "" || strings.TrimSpace(track.Title) == "" {
		return domain.MusicSource{}, false
	}
	title := strings.TrimSpace(track.Title)
	if track.Artist != "" {
		title = track.Artist + " - " + title
	}
	codec := track.Codec
	if codec == "" {
		codec = p.defaultCodec
	}
	bitrate := track.BitrateKbps
	if bitrate <= 0 {
		bitrate = p.defaultBitrate
	}
	return domain.MusicSource{
		SourceKind:      p.sourceKind,
		Title:           title,
		Indexer:         indexerName,
		Format:          codec,
		URL:             firstNonEmpty(track.WatchURL, track.ID),
		Codec:           codec,
		BitrateKbps:     bitrate,
		ThumbnailURL:    track.ThumbnailURL,
		DurationSeconds: track.DurationSeconds,
	}, true
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// Resolve looks up the actual playable stream URL for a track id. This is a
// distinct operation from Search: catalogs return a lightweight descriptor
// from search and require a second request, often with a short-lived signed
// URL, to hand back something a player can open.
func (p *Provider) Resolve(ctx context.Context, id string, config domain.AdapterConfig) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("streamcatalog resolve: empty track id")
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		return "", fmt.Errorf("streamcatalog adapter %q: base_url not configured", config.Name)
	}

	uri, err := url.Parse(config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid streamcatalog endpoint: %w", err)
	}
	uri.Path = strings.TrimRight(uri.Path, "/") + "/resolve"
	values := uri.Query()
	values.Set("id", id)
	uri.RawQuery = values.Encode()

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")
	if config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("streamcatalog %q resolve returned status %d", config.Name, resp.StatusCode)
	}

	var parsed struct {
		StreamURL string `json:"stream_url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1*1024*1024)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("invalid resolve response: %w", err)
	}
	if parsed.StreamURL == "" {
		return "", fmt.Errorf("streamcatalog %q: resolve returned no stream_url", config.Name)
	}
	return parsed.StreamURL, nil
}
