// Package selector implements the Candidate Selector (C8): choosing one
// source from a non-empty candidate list, preferring an advisor's judgment
// with a deterministic quality-score fallback.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"musicsearch/searchcore/internal/advisor"
	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/quality"
)

const systemPrompt = `You select the single best candidate for a music download request.
Reject any candidate whose title does not contain the expected album, if one is given.
Respond with exactly one JSON object: {"selected_index":int,"reasoning":string,"top_3":[int],
"rejected_sample":[int]}. selected_index is -1 if no candidate matches the expected album.`

// Preferences narrows candidate selection (spec §4.8).
type Preferences struct {
	Format          string
	PreferSongOnly  bool
	ExpectedAlbum   string
	ExpectedArtist  string
}

// Selector is the Candidate Selector (C8).
type Selector struct {
	advisor advisor.Advisor
}

type Option func(*Selector)

func WithAdvisor(a advisor.Advisor) Option {
	return func(s *Selector) { s.advisor = a }
}

func NewSelector(opts ...Option) *Selector {
	s := &Selector{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type advisorSelection struct {
	SelectedIndex  int    `json:"selected_index"`
	Reasoning      string `json:"reasoning"`
	Top3           []int  `json:"top_3"`
	RejectedSample []int  `json:"rejected_sample"`
}

// Select implements the C8 contract. candidates MUST be non-empty.
func (s *Selector) Select(ctx context.Context, query string, candidates []domain.MusicSource, prefs Preferences) (domain.SelectionDecision, error) {
	if len(candidates) == 0 {
		return domain.SelectionDecision{}, domain.ErrEmptyCandidates
	}

	if s.advisor != nil {
		if decision, albumMismatch, ok := s.tryAdvisor(ctx, query, candidates, prefs); ok {
			if albumMismatch {
				fallback := qualityFallback(candidates)
				fallback.AlbumMismatch = true
				return fallback, nil
			}
			return decision, nil
		}
	}
	return qualityFallback(candidates), nil
}

func (s *Selector) tryAdvisor(ctx context.Context, query string, candidates []domain.MusicSource, prefs Preferences) (domain.SelectionDecision, bool, bool) {
	prompt := buildPrompt(query, candidates, prefs)
	resp, err := s.advisor.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return domain.SelectionDecision{}, false, false
	}
	raw := advisor.ExtractJSONObject(resp.Text)
	if raw == "" {
		return domain.SelectionDecision{}, false, false
	}
	var parsed advisorSelection
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.SelectionDecision{}, false, false
	}

	if parsed.SelectedIndex == -1 {
		return domain.SelectionDecision{}, true, true
	}
	if parsed.SelectedIndex < 0 || parsed.SelectedIndex >= len(candidates) {
		return domain.SelectionDecision{}, false, false
	}

	decision := domain.SelectionDecision{
		Selected:  candidates[parsed.SelectedIndex],
		Reasoning: parsed.Reasoning,
	}
	for _, idx := range capIndices(parsed.Top3, 3) {
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		decision.TopCandidates = append(decision.TopCandidates, domain.CandidateReason{Source: candidates[idx], Reason: "top candidate"})
	}
	for _, idx := range capIndices(parsed.RejectedSample, 5) {
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		decision.Rejected = append(decision.Rejected, domain.CandidateReason{Source: candidates[idx], Reason: "not selected"})
	}
	return decision, false, true
}

func capIndices(indices []int, max int) []int {
	if len(indices) > max {
		return indices[:max]
	}
	return indices
}

// qualityFallback selects the argmax of QualityScore, breaking ties by
// index order (first occurrence wins), and sets FallbackUsed.
func qualityFallback(candidates []domain.MusicSource) domain.SelectionDecision {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if quality.Score(candidates[i]) > quality.Score(candidates[best]) {
			best = i
		}
	}
	return domain.SelectionDecision{
		Selected:     candidates[best],
		Reasoning:    "selected by highest quality score (advisor unavailable or declined)",
		FallbackUsed: true,
	}
}

func buildPrompt(query string, candidates []domain.MusicSource, prefs Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", query)
	if prefs.ExpectedAlbum != "" {
		fmt.Fprintf(&b, "Expected album: %s\n", prefs.ExpectedAlbum)
	}
	if prefs.ExpectedArtist != "" {
		fmt.Fprintf(&b, "Expected artist: %s\n", prefs.ExpectedArtist)
	}
	if prefs.Format != "" {
		fmt.Fprintf(&b, "Preferred format: %s\n", prefs.Format)
	}
	if prefs.PreferSongOnly {
		b.WriteString("Prefer single-track torrents over full albums.\n")
	}
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s | format=%s | bitrate=%d | size=%d | seeders=%v | indexer=%s | quality=%v\n",
			i, c.Title, c.Format, c.BitrateKbps, c.SizeBytes, seedersValue(c), c.Indexer, c.QualityScore)
	}
	return b.String()
}

func seedersValue(c domain.MusicSource) any {
	if c.Seeders == nil {
		return nil
	}
	return *c.Seeders
}
