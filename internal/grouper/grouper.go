// Package grouper implements the Release Grouper (C7): grouping a raw
// metadata release list into a bounded, human-labeled selection for the
// user, preferring an advisor's judgment with a deterministic fallback.
package grouper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"musicsearch/searchcore/internal/advisor"
	"musicsearch/searchcore/internal/domain"
)

const defaultMaxGroups = 5

const systemPrompt = `You group music metadata releases into at most %d labeled groups for a
user to choose from. Prefer edition priority Deluxe > Original > Compilation > Live when a
song appears on multiple albums. For an album query with multiple editions, surface up to
about 5 editions. For an artist-only query, group by category (popular albums, discography,
hits). Respond with exactly one JSON object: {"groups":[{"index":int,"label":string,"reason":string,"recommended":bool}]}
where index refers to the position in the input release list.`

// Grouper is the Release Grouper (C7).
type Grouper struct {
	advisor   advisor.Advisor
	maxGroups int
}

type Option func(*Grouper)

func WithAdvisor(a advisor.Advisor) Option {
	return func(g *Grouper) { g.advisor = a }
}

func WithMaxGroups(n int) Option {
	return func(g *Grouper) {
		if n > 0 {
			g.maxGroups = n
		}
	}
}

func NewGrouper(opts ...Option) *Grouper {
	g := &Grouper{maxGroups: defaultMaxGroups}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type advisorGroupResponse struct {
	Groups []advisorGroup `json:"groups"`
}

type advisorGroup struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	Reason      string `json:"reason"`
	Recommended bool   `json:"recommended"`
}

// Group produces at most maxGroups GroupedReleases from a raw release list,
// using the advisor when available and falling back deterministically
// otherwise.
func (g *Grouper) Group(ctx context.Context, releases []domain.MetadataRelease, parsed domain.ParsedQuery) ([]domain.GroupedRelease, error) {
	if len(releases) == 0 {
		return nil, domain.ErrEmptyCandidates
	}

	if g.advisor != nil {
		if grouped, ok := g.tryAdvisor(ctx, releases, parsed); ok {
			return grouped, nil
		}
	}
	return FallbackGroup(releases), nil
}

func (g *Grouper) tryAdvisor(ctx context.Context, releases []domain.MetadataRelease, parsed domain.ParsedQuery) ([]domain.GroupedRelease, bool) {
	prompt := buildPrompt(releases, parsed)
	resp, err := g.advisor.Complete(ctx, fmt.Sprintf(systemPrompt, g.maxGroups), prompt)
	if err != nil {
		return nil, false
	}
	raw := advisor.ExtractJSONObject(resp.Text)
	if raw == "" {
		return nil, false
	}
	var parsedResp advisorGroupResponse
	if err := json.Unmarshal([]byte(raw), &parsedResp); err != nil {
		return nil, false
	}
	if len(parsedResp.Groups) == 0 {
		return nil, false
	}

	grouped := make([]domain.GroupedRelease, 0, len(parsedResp.Groups))
	for _, group := range parsedResp.Groups {
		if group.Index < 0 || group.Index >= len(releases) {
			return nil, false
		}
		grouped = append(grouped, domain.GroupedRelease{
			Label:       group.Label,
			Release:     releases[group.Index],
			Reason:      group.Reason,
			Recommended: group.Recommended,
		})
	}
	if len(grouped) > g.maxGroups {
		grouped = grouped[:g.maxGroups]
	}
	return grouped, true
}

func buildPrompt(releases []domain.MetadataRelease, parsed domain.ParsedQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: artist=%q album=%q song=%q type=%s\n", parsed.Artist, parsed.Album, parsed.Song, parsed.SearchType)
	for i, r := range releases {
		fmt.Fprintf(&b, "[%d] %s - %s (%d)\n", i, r.Artist, label(r), r.Year)
	}
	return b.String()
}

// FallbackGroup takes the first five releases, labels each "artist — album"
// (or "artist — title" when no album is set), and marks the first
// recommended (spec §4.7).
func FallbackGroup(releases []domain.MetadataRelease) []domain.GroupedRelease {
	n := len(releases)
	if n > 5 {
		n = 5
	}
	grouped := make([]domain.GroupedRelease, n)
	for i := 0; i < n; i++ {
		r := releases[i]
		grouped[i] = domain.GroupedRelease{
			Label:       fmt.Sprintf("%s — %s", r.Artist, label(r)),
			Release:     r,
			Recommended: i == 0,
		}
	}
	return grouped
}

func label(r domain.MetadataRelease) string {
	if strings.TrimSpace(r.Album) != "" {
		return r.Album
	}
	return r.Title
}
