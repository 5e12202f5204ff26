package queryparser

import (
	"context"
	"errors"
	"testing"

	"musicsearch/searchcore/internal/advisor"
	"musicsearch/searchcore/internal/domain"
)

func TestParseEmptyQuery(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(context.Background(), "  ")
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestFallbackParseSeparator(t *testing.T) {
	got := FallbackParse("Daft Punk - Discovery")
	if got.Artist != "Daft Punk" || got.Song != "Discovery" {
		t.Fatalf("unexpected parse: %+v", got)
	}
	if got.Confidence < 0.5 || got.Confidence > 0.9 {
		t.Fatalf("confidence out of range: %v", got.Confidence)
	}
}

func TestFallbackParseShortQuery(t *testing.T) {
	got := FallbackParse("Radiohead")
	if got.SearchType != domain.SearchTypeArtist {
		t.Fatalf("expected artist type, got %v", got.SearchType)
	}
}

func TestFallbackParseMidLengthQuery(t *testing.T) {
	got := FallbackParse("Radiohead OK Computer")
	if got.Artist != "Radiohead" || got.Album != "OK Computer" {
		t.Fatalf("unexpected parse: %+v", got)
	}
}

func TestFallbackParseLongQueryUppercaseSecondWord(t *testing.T) {
	got := FallbackParse("Fleet Foxes Helplessness Blues deluxe edition")
	if got.Artist != "Fleet Foxes" {
		t.Fatalf("expected two-word artist, got %q", got.Artist)
	}
}

func TestFallbackParseLongQueryLowercaseSecondWord(t *testing.T) {
	got := FallbackParse("Beyonce featuring many artists on this album")
	if got.Artist != "Beyonce" {
		t.Fatalf("expected single-word artist, got %q", got.Artist)
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

func TestParseUsesAdvisorWhenValid(t *testing.T) {
	p := NewParser(WithAdvisor(&fakeAdvisor{text: `{"artist":"Aphex Twin","album":"Selected Ambient Works","search_type":"album","confidence":0.95,"ambiguous":false}`}))
	got, err := p.Parse(context.Background(), "aphex twin selected ambient works")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Artist != "Aphex Twin" || got.SearchType != domain.SearchTypeAlbum {
		t.Fatalf("unexpected parse: %+v", got)
	}
}

func TestParseFallsBackOnAdvisorError(t *testing.T) {
	p := NewParser(WithAdvisor(&fakeAdvisor{err: errors.New("upstream down")}))
	got, err := p.Parse(context.Background(), "Daft Punk - Discovery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Artist != "Daft Punk" {
		t.Fatalf("expected fallback parse, got %+v", got)
	}
}

func TestParseFallsBackOnInvalidJSON(t *testing.T) {
	p := NewParser(WithAdvisor(&fakeAdvisor{text: "not json at all"}))
	got, err := p.Parse(context.Background(), "Daft Punk - Discovery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Artist != "Daft Punk" {
		t.Fatalf("expected fallback parse, got %+v", got)
	}
}

func TestParseFallsBackOnMissingRequiredField(t *testing.T) {
	p := NewParser(WithAdvisor(&fakeAdvisor{text: `{"artist":"X","search_type":"song","confidence":0.9}`}))
	got, err := p.Parse(context.Background(), "Daft Punk - Discovery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Artist != "Daft Punk" {
		t.Fatalf("expected fallback parse when song field missing, got %+v", got)
	}
}

func TestParseFallsBackOnOutOfRangeConfidence(t *testing.T) {
	p := NewParser(WithAdvisor(&fakeAdvisor{text: `{"artist":"X","song":"Y","search_type":"song","confidence":1.5}`}))
	got, err := p.Parse(context.Background(), "Daft Punk - Discovery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Artist != "Daft Punk" {
		t.Fatalf("expected fallback parse on out-of-range confidence, got %+v", got)
	}
}
