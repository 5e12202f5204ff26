// Package metadataservice is a thin client over a canonical music metadata
// HTTP service (C6): self-paced to at most one request per second, and
// over-fetching to defeat non-deterministic upstream pagination on tied
// scores.
package metadataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/time/rate"

	"musicsearch/searchcore/internal/domain"
)

const (
	defaultBaseURL   = "https://musicbrainz.org/ws/2"
	defaultUserAgent = "musicsearchcore/1.0 (+https://github.com/musicsearch/searchcore)"
	minFetchSize     = 100
	overFetchFactor  = 5
)

// Client is the Metadata Service (C6).
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

// NewClient builds a Client self-paced to one request per second.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{},
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type recordingResponse struct {
	Recordings []recordingEntry `json:"recordings"`
}

type recordingEntry struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
	Length int     `json:"length"`
	Releases []struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"releases"`
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
}

// SearchRecordings implements the C6 contract: over-fetch, sort locally by
// (-score, mbid ascending), then truncate to limit for deterministic output.
func (c *Client) SearchRecordings(ctx context.Context, query, artist string, limit int) ([]domain.MetadataRelease, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchSize := limit * overFetchFactor
	if fetchSize < minFetchSize {
		fetchSize = minFetchSize
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryString := query
	if artist != "" {
		queryString = fmt.Sprintf("%s AND artist:%s", query, artist)
	}

	reqURL := fmt.Sprintf("%s/recording?query=%s&limit=%d&fmt=json",
		c.baseURL, url.QueryEscape(queryString), fetchSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata service returned status %d", resp.StatusCode)
	}

	var body recordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	releases := make([]domain.MetadataRelease, 0, len(body.Recordings))
	for _, r := range body.Recordings {
		releases = append(releases, toMetadataRelease(r))
	}
	sortDeterministic(releases)
	if len(releases) > limit {
		releases = releases[:limit]
	}
	return releases, nil
}

// GetByID fetches a single recording by MusicBrainz ID. Returns nil, nil if
// not found.
func (c *Client) GetByID(ctx context.Context, mbid string) (*domain.MetadataRelease, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/recording/%s?fmt=json", c.baseURL, url.PathEscape(mbid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata service returned status %d", resp.StatusCode)
	}

	var entry recordingEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, err
	}
	release := toMetadataRelease(entry)
	return &release, nil
}

func toMetadataRelease(r recordingEntry) domain.MetadataRelease {
	var artist, album string
	if len(r.ArtistCredit) > 0 {
		artist = r.ArtistCredit[0].Name
	}
	var year int
	if len(r.Releases) > 0 {
		album = r.Releases[0].Title
		year = yearFromDate(r.Releases[0].Date)
	}
	return domain.MetadataRelease{
		MBID:       r.ID,
		Artist:     artist,
		Title:      r.Title,
		Album:      album,
		Year:       year,
		DurationMS: r.Length,
		Score:      r.Score,
	}
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func sortDeterministic(releases []domain.MetadataRelease) {
	sort.Slice(releases, func(i, j int) bool {
		if releases[i].Score != releases[j].Score {
			return releases[i].Score > releases[j].Score
		}
		return releases[i].MBID < releases[j].MBID
	})
}
