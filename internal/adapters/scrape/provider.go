// Package scrape implements the HTML-scrape Source Adapter variant (spec
// §4.1): a results page is fetched and parsed for candidate detail links,
// then up to a bounded number of detail pages are fetched concurrently for
// the magnet/seeder/size fields the results page doesn't carry.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/encoding/charmap"

	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/musicmeta"
	"musicsearch/searchcore/internal/providers/common"
)

const (
	defaultUserAgent      = "musicsearchcore/1.0"
	maxDetailFetches      = 20
	detailFetchConcurrency = 5
)

var (
	entryPattern    = regexp.MustCompile(`(?is)<a[^>]+href="([^"]+)"[^>]*class="[^"]*result[^"]*"[^>]*>(.*?)</a>`)
	magnetPattern   = regexp.MustCompile(`magnet:\?xt=urn:btih:[a-zA-Z0-9]{32,40}[^\s"'<>]*`)
	seedersPattern  = regexp.MustCompile(`(?is)(?:seeders|seeds)\D{0,20}?(\d+)`)
	leechersPattern = regexp.MustCompile(`(?is)(?:leechers|peers)\D{0,20}?(\d+)`)
	sizePattern     = regexp.MustCompile(`(?is)(?:size)\D{0,10}?([\d.,]+\s*(?:GB|MB|KB|TB))`)
)

// Config configures one scrape-variant indexer endpoint.
type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

// Provider is the HTML-scrape adapter variant.
type Provider struct {
	client    *http.Client
	userAgent string
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Provider{client: client, userAgent: userAgent}
}

func (p *Provider) Name() string { return "scrape" }

type searchEntry struct {
	path  string
	title string
}

func (p *Provider) Search(ctx context.Context, query string, config domain.AdapterConfig) ([]domain.MusicSource, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("scrape adapter %q: base_url not configured", config.Name)
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid scrape endpoint: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	entries, err := p.fetchSearchEntries(ctx, base, query, timeout)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []domain.MusicSource{}, nil
	}
	if len(entries) > maxDetailFetches {
		entries = entries[:maxDetailFetches]
	}

	type outcome struct {
		source domain.MusicSource
		ok     bool
	}
	outcomes := make([]outcome, len(entries))
	sem := semaphore.NewWeighted(detailFetchConcurrency)
	done := make(chan struct{}, len(entries))

	for i, entry := range entries {
		i, entry := i, entry
		go func() {
			defer func() { done <- struct{}{} }()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			html, err := p.fetchDetailHTML(ctx, base, entry.path, timeout)
			if err != nil {
				return
			}
			source, ok := parseDetail(html, entry.title, config.Name)
			outcomes[i] = outcome{source: source, ok: ok}
		}()
	}
	for range entries {
		<-done
	}

	results := make([]domain.MusicSource, 0, len(entries))
	for _, o := range outcomes {
		if o.ok {
			results = append(results, o.source)
		}
	}
	return results, nil
}

func (p *Provider) fetchSearchEntries(ctx context.Context, base *url.URL, query string, timeout time.Duration) ([]searchEntry, error) {
	searchURL := base.ResolveReference(&url.URL{Path: "/search/" + url.PathEscape(strings.TrimSpace(query)) + "/1/"})

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape endpoint returned status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseSearchEntries(decodeHTML(payload)), nil
}

func (p *Provider) fetchDetailHTML(ctx context.Context, base *url.URL, path string, timeout time.Duration) (string, error) {
	detail, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(detail)

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, resolved.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("detail page returned status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", err
	}
	return decodeHTML(payload), nil
}

// decodeHTML returns payload as-is when it's valid UTF-8, else assumes the
// legacy Windows-1251 encoding many older indexer sites still serve.
func decodeHTML(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(payload)
	if err != nil {
		return string(payload)
	}
	return string(decoded)
}

func parseSearchEntries(payload string) []searchEntry {
	matches := entryPattern.FindAllStringSubmatch(payload, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	entries := make([]searchEntry, 0, len(matches))
	for _, m := range matches {
		if len(m) < 3 {
			continue
		}
		path := strings.TrimSpace(m[1])
		if path == "" {
			continue
		}
		if _, exists := seen[path]; exists {
			continue
		}
		seen[path] = struct{}{}
		entries = append(entries, searchEntry{path: path, title: common.CleanHTMLText(m[2])})
	}
	return entries
}

func parseDetail(html, title, indexerName string) (domain.MusicSource, bool) {
	magnet := magnetPattern.FindString(html)
	if magnet == "" {
		return domain.MusicSource{}, false
	}
	infoHash := domain.InfoHashFromMagnet(magnet)
	if infoHash == "" {
		return domain.MusicSource{}, false
	}

	name := strings.TrimSpace(title)
	if name == "" {
		name = "untitled " + infoHash
	}

	var seeders, leechers *int
	if m := seedersPattern.FindStringSubmatch(html); len(m) == 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			seeders = &v
		}
	}
	if m := leechersPattern.FindStringSubmatch(html); len(m) == 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			leechers = &v
		}
	}

	sizeBytes := int64(0)
	if m := sizePattern.FindStringSubmatch(html); len(m) == 2 {
		sizeBytes = common.ParseHumanSize(m[1])
	}
	if sizeBytes == 0 {
		sizeBytes = musicmeta.ExtractSizeBytes(name)
	}

	return domain.MusicSource{
		SourceKind: domain.SourceKindTorrent,
		Title:      name,
		Indexer:    indexerName,
		Format:     musicmeta.ExtractFormat(name),
		MagnetURI:  magnet,
		SizeBytes:  sizeBytes,
		Seeders:    seeders,
		Leechers:   leechers,
	}, true
}
