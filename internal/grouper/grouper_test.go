package grouper

import (
	"context"
	"errors"
	"testing"

	"musicsearch/searchcore/internal/advisor"
	"musicsearch/searchcore/internal/domain"
)

func releases(n int) []domain.MetadataRelease {
	out := make([]domain.MetadataRelease, n)
	for i := range out {
		out[i] = domain.MetadataRelease{MBID: string(rune('a' + i)), Artist: "Artist", Album: "Album"}
	}
	return out
}

func TestGroupEmptyCandidates(t *testing.T) {
	g := NewGrouper()
	_, err := g.Group(context.Background(), nil, domain.ParsedQuery{})
	if !errors.Is(err, domain.ErrEmptyCandidates) {
		t.Fatalf("expected ErrEmptyCandidates, got %v", err)
	}
}

func TestFallbackGroupCapsAtFiveAndRecommendsFirst(t *testing.T) {
	grouped := FallbackGroup(releases(8))
	if len(grouped) != 5 {
		t.Fatalf("expected 5 groups, got %d", len(grouped))
	}
	if !grouped[0].Recommended {
		t.Fatalf("expected first group to be recommended")
	}
	for i := 1; i < len(grouped); i++ {
		if grouped[i].Recommended {
			t.Fatalf("expected only the first group to be recommended")
		}
	}
}

func TestFallbackGroupLabelFallsBackToTitle(t *testing.T) {
	rs := []domain.MetadataRelease{{Artist: "Artist", Title: "Track Only"}}
	grouped := FallbackGroup(rs)
	if grouped[0].Label != "Artist — Track Only" {
		t.Fatalf("unexpected label: %q", grouped[0].Label)
	}
}

type fakeAdvisor struct {
	text string
	err  error
}

func (f *fakeAdvisor) Complete(ctx context.Context, systemPrompt, userPrompt string) (advisor.Response, error) {
	if f.err != nil {
		return advisor.Response{}, f.err
	}
	return advisor.Response{Text: f.text}, nil
}

func TestGroupUsesAdvisorWhenValid(t *testing.T) {
	g := NewGrouper(WithAdvisor(&fakeAdvisor{text: `{"groups":[{"index":1,"label":"Deluxe Edition","reason":"has bonus tracks","recommended":true}]}`}))
	grouped, err := g.Group(context.Background(), releases(3), domain.ParsedQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped) != 1 || grouped[0].Label != "Deluxe Edition" {
		t.Fatalf("unexpected groups: %+v", grouped)
	}
}

func TestGroupFallsBackOnOutOfRangeIndex(t *testing.T) {
	g := NewGrouper(WithAdvisor(&fakeAdvisor{text: `{"groups":[{"index":99,"label":"bad"}]}`}))
	grouped, err := g.Group(context.Background(), releases(3), domain.ParsedQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped) != 3 {
		t.Fatalf("expected fallback to all 3 releases, got %d", len(grouped))
	}
}

func TestGroupFallsBackOnAdvisorError(t *testing.T) {
	g := NewGrouper(WithAdvisor(&fakeAdvisor{err: errors.New("down")}))
	grouped, err := g.Group(context.Background(), releases(2), domain.ParsedQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("expected fallback, got %+v", grouped)
	}
}
