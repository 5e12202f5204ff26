// Package queryparser implements the Query Parser (C5): turning a raw user
// query into a structured ParsedQuery, via an optional advisor with a
// deterministic fallback, plus the SQL-ish query grammar.
package queryparser

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"musicsearch/searchcore/internal/advisor"
	"musicsearch/searchcore/internal/domain"
)

const systemPrompt = `You parse a free-text music search query into structured JSON with keys:
artist, song, album, year, search_type (one of "song","album","discography","artist"),
confidence (0-1), ambiguous (bool), format_preference. Respond with exactly one JSON object.`

// Parser is the Query Parser (C5).
type Parser struct {
	advisor advisor.Advisor
}

// Option configures a Parser.
type Option func(*Parser)

func WithAdvisor(a advisor.Advisor) Option {
	return func(p *Parser) { p.advisor = a }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type advisorParsedQuery struct {
	Artist           string  `json:"artist"`
	Song             string  `json:"song"`
	Album            string  `json:"album"`
	Year             int     `json:"year"`
	SearchType       string  `json:"search_type"`
	Confidence       float64 `json:"confidence"`
	Ambiguous        bool    `json:"ambiguous"`
	FormatPreference string  `json:"format_preference"`
}

var validSearchTypes = map[string]domain.SearchType{
	"song":        domain.SearchTypeSong,
	"album":       domain.SearchTypeAlbum,
	"discography": domain.SearchTypeDiscography,
	"artist":      domain.SearchTypeArtist,
}

// Parse synthesizes a ParsedQuery from raw user text. It tries the advisor
// first (if configured) and falls through to the deterministic heuristic on
// any failure.
func (p *Parser) Parse(ctx context.Context, query string) (domain.ParsedQuery, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ParsedQuery{}, domain.ErrEmptyQuery
	}

	if p.advisor != nil {
		if parsed, ok := p.tryAdvisor(ctx, query); ok {
			return parsed, nil
		}
	}
	return FallbackParse(query), nil
}

func (p *Parser) tryAdvisor(ctx context.Context, query string) (domain.ParsedQuery, bool) {
	resp, err := p.advisor.Complete(ctx, systemPrompt, query)
	if err != nil {
		return domain.ParsedQuery{}, false
	}
	raw := advisor.ExtractJSONObject(resp.Text)
	if raw == "" {
		return domain.ParsedQuery{}, false
	}
	var parsed advisorParsedQuery
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.ParsedQuery{}, false
	}
	searchType, ok := validSearchTypes[strings.ToLower(parsed.SearchType)]
	if !ok {
		return domain.ParsedQuery{}, false
	}
	if searchType == domain.SearchTypeSong && strings.TrimSpace(parsed.Song) == "" {
		return domain.ParsedQuery{}, false
	}
	if searchType == domain.SearchTypeAlbum && strings.TrimSpace(parsed.Album) == "" {
		return domain.ParsedQuery{}, false
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return domain.ParsedQuery{}, false
	}
	return domain.ParsedQuery{
		Artist:           parsed.Artist,
		Song:             parsed.Song,
		Album:            parsed.Album,
		Year:             parsed.Year,
		SearchType:       searchType,
		Confidence:       parsed.Confidence,
		Ambiguous:        parsed.Ambiguous,
		FormatPreference: parsed.FormatPreference,
	}, true
}

var separatorRe = regexp.MustCompile(`\s*[-/|]\s*`)

// FallbackParse implements the deterministic heuristic (spec §4.5.2): split
// on common separators first, else apply word-count heuristics.
func FallbackParse(query string) domain.ParsedQuery {
	if parts := separatorRe.Split(query, -1); len(parts) >= 2 {
		artist := strings.TrimSpace(parts[0])
		rest := strings.TrimSpace(strings.Join(parts[1:], " "))
		return domain.ParsedQuery{
			Artist:     artist,
			Song:       rest,
			SearchType: domain.SearchTypeSong,
			Confidence: 0.7,
		}
	}

	words := strings.Fields(query)
	switch {
	case len(words) <= 2:
		return domain.ParsedQuery{
			Artist:     strings.Join(words, " "),
			SearchType: domain.SearchTypeArtist,
			Confidence: 0.5,
		}
	case len(words) <= 4:
		return domain.ParsedQuery{
			Artist:     words[0],
			Album:      strings.Join(words[1:], " "),
			SearchType: domain.SearchTypeAlbum,
			Confidence: 0.6,
		}
	default:
		if startsUppercase(words[1]) {
			return domain.ParsedQuery{
				Artist:     strings.Join(words[:2], " "),
				Album:      strings.Join(words[2:], " "),
				SearchType: domain.SearchTypeAlbum,
				Confidence: 0.9,
			}
		}
		return domain.ParsedQuery{
			Artist:     words[0],
			Album:      strings.Join(words[1:], " "),
			SearchType: domain.SearchTypeAlbum,
			Confidence: 0.8,
		}
	}
}

func startsUppercase(word string) bool {
	if word == "" {
		return false
	}
	r := rune(word[0])
	return r >= 'A' && r <= 'Z'
}
