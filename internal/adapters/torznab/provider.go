// Package torznab implements the Torznab-variant Source Adapter (spec
// §4.1/§6): HTTP GET against a Torznab-compatible indexer, parsing the
// RSS-2.0 response with torznab:attr extensions for magneturl/seeders/peers/size.
package torznab

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/musicmeta"
)

const defaultUserAgent = "musicsearchcore/1.0"

// defaultCategories are the Newznab/Torznab music categories (3000 series).
var defaultCategories = []int{3000, 3010, 3020, 3030, 3040, 3050}

// Provider is the Torznab adapter variant.
type Provider struct {
	client    *http.Client
	userAgent string
}

func NewProvider(client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{client: client, userAgent: defaultUserAgent}
}

func (p *Provider) Name() string { return "torznab" }

func (p *Provider) Search(ctx context.Context, query string, config domain.AdapterConfig) ([]domain.MusicSource, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("torznab adapter %q: base_url not configured", config.Name)
	}

	uri, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid torznab endpoint: %w", err)
	}
	categories := config.Categories
	if len(categories) == 0 {
		categories = defaultCategories
	}
	values := uri.Query()
	values.Set("t", "search")
	values.Set("q", strings.TrimSpace(query))
	values.Set("extended", "1")
	if config.APIKey != "" {
		values.Set("apikey", config.APIKey)
	}
	values.Set("cat", joinInts(categories))
	uri.RawQuery = values.Encode()

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml,application/rss+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torznab indexer %q returned status %d", config.Name, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, err
	}

	items, err := parseResponse(payload)
	if err != nil {
		return nil, err
	}

	results := make([]domain.MusicSource, 0, len(items))
	for _, item := range items {
		if source, ok := itemToSource(item, config.Name); ok {
			results = append(results, source)
		}
	}
	return results, nil
}

type torznabResponse struct {
	Channel torznabChannel `xml:"channel"`
}

type torznabChannel struct {
	Items []torznabItem `xml:"item"`
}

type torznabItem struct {
	Title      string           `xml:"title"`
	Guid       string           `xml:"guid"`
	Link       string           `xml:"link"`
	PubDate    string           `xml:"pubDate"`
	Categories []string         `xml:"category"`
	Enclosure  torznabEnclosure `xml:"enclosure"`
	Attrs      []torznabAttr    `xml:"attr"`
}

type torznabEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func parseResponse(payload []byte) ([]torznabItem, error) {
	var rss torznabResponse
	if err := xml.Unmarshal(payload, &rss); err != nil {
		return nil, fmt.Errorf("invalid torznab XML: %w", err)
	}
	return rss.Channel.Items, nil
}

func itemToSource(item torznabItem, indexerName string) (domain.MusicSource, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.MusicSource{}, false
	}

	attrs := make(map[string]string, len(item.Attrs))
	for _, attr := range item.Attrs {
		key := strings.ToLower(strings.TrimSpace(attr.Name))
		if key == "" {
			continue
		}
		if _, exists := attrs[key]; exists {
			continue
		}
		attrs[key] = strings.TrimSpace(attr.Value)
	}

	// Rule 1: prefer the magneturl attribute; else fall back to link iff it
	// is itself a magnet URI. Rule 2: a proxy/redirect link that is not a
	// true magnet: URI is rejected outright, never synthesized from infohash.
	magnet := firstMagnet(attrs["magneturl"], item.Link)
	if magnet == "" {
		return domain.MusicSource{}, false
	}

	sizeBytes := parseI64(attrs["size"])
	if sizeBytes <= 0 {
		if item.Enclosure.Length > 0 {
			sizeBytes = item.Enclosure.Length
		} else {
			sizeBytes = musicmeta.ExtractSizeBytes(title)
		}
	}

	seeders := parseIntPtr(attrs["seeders"])
	leechers := parseIntPtr(attrs["peers"])

	var uploadedAt *time.Time
	if published := parsePubDate(item.PubDate); published != nil {
		uploadedAt = published
	}

	format := musicmeta.ExtractFormat(title)
	if format == "" {
		format = musicmeta.FormatFromCategory(resultCategory(item, attrs), title)
	}

	return domain.MusicSource{
		SourceKind: domain.SourceKindTorrent,
		Title:      title,
		Indexer:    indexerName,
		Format:     format,
		URL:        firstNonEmpty(item.Link, item.Guid),
		MagnetURI:  magnet,
		SizeBytes:  sizeBytes,
		Seeders:    seeders,
		Leechers:   leechers,
		UploadedAt: uploadedAt,
	}, true
}

func firstMagnet(candidates ...string) string {
	for _, candidate := range candidates {
		value := strings.TrimSpace(candidate)
		if strings.HasPrefix(strings.ToLower(value), "magnet:?") {
			return value
		}
	}
	return ""
}

// resultCategory returns the item's torznab category, read from the
// "category" attr first and the RSS <category> elements second. Returns 0
// (no mapped format) if neither carries a parseable number.
func resultCategory(item torznabItem, attrs map[string]string) int {
	if raw, ok := attrs["category"]; ok {
		if value, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return value
		}
	}
	for _, raw := range item.Categories {
		if value, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return value
		}
	}
	return 0
}

func firstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

func parseIntPtr(raw string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &value
}

func parseI64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		now := time.Now().UTC()
		return &now
	}
	for _, format := range pubDateFormats {
		if parsed, err := time.Parse(format, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	now := time.Now().UTC()
	return &now
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
