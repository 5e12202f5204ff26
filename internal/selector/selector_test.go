package selector

import (
	"context"
	"errors"
	"testing"

	"musicsearch/searchcore/internal/advisor"
	"musicsearch/searchcore/internal/domain"
)

func seed(n int) *int { return &n }

func candidates() []domain.MusicSource {
	return []domain.MusicSource{
		{Title: "low", SourceKind: domain.SourceKindTorrent, Format: "MP3", Seeders: seed(1)},
		{Title: "high", SourceKind: domain.SourceKindTorrent, Format: "FLAC", Seeders: seed(50)},
		{Title: "mid", SourceKind: domain.SourceKindTorrent, Format: "MP3", Seeders: seed(20)},
	}
}

func TestSelectEmptyCandidates(t *testing.T) {
	s := NewSelector()
	_, err := s.Select(context.Background(), "q", nil, Preferences{})
	if !errors.Is(err, domain.ErrEmptyCandidates) {
		t.Fatalf("expected ErrEmptyCandidates, got %v", err)
	}
}

func TestQualityFallbackPicksArgmax(t *testing.T) {
	s := NewSelector()
	decision, err := s.Select(context.Background(), "q", candidates(), Preferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Selected.Title != "high" {
		t.Fatalf("expected highest quality score candidate, got %q", decision.Selected.Title)
	}
	if !decision.FallbackUsed {
		t.Fatalf("expected FallbackUsed to be true with no advisor")
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

func TestSelectUsesAdvisorIndex(t *testing.T) {
	s := NewSelector(WithAdvisor(&fakeAdvisor{text: `{"selected_index":2,"reasoning":"best match","top_3":[2,1],"rejected_sample":[0]}`}))
	decision, err := s.Select(context.Background(), "q", candidates(), Preferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Selected.Title != "mid" {
		t.Fatalf("expected advisor-selected candidate, got %q", decision.Selected.Title)
	}
	if decision.FallbackUsed {
		t.Fatalf("did not expect fallback when advisor succeeds")
	}
	if len(decision.TopCandidates) != 2 || len(decision.Rejected) != 1 {
		t.Fatalf("unexpected top/rejected lengths: %+v", decision)
	}
}

func TestSelectNegativeOneMeansAlbumMismatch(t *testing.T) {
	s := NewSelector(WithAdvisor(&fakeAdvisor{text: `{"selected_index":-1,"reasoning":"no match"}`}))
	decision, err := s.Select(context.Background(), "q", candidates(), Preferences{ExpectedAlbum: "Some Album"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.AlbumMismatch || !decision.FallbackUsed {
		t.Fatalf("expected album mismatch + fallback, got %+v", decision)
	}
}

func TestSelectFallsBackOnOutOfRangeIndex(t *testing.T) {
	s := NewSelector(WithAdvisor(&fakeAdvisor{text: `{"selected_index":99}`}))
	decision, err := s.Select(context.Background(), "q", candidates(), Preferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.FallbackUsed {
		t.Fatalf("expected fallback on out-of-range index")
	}
}

func TestSelectFallsBackOnAdvisorError(t *testing.T) {
	s := NewSelector(WithAdvisor(&fakeAdvisor{err: errors.New("down")}))
	decision, err := s.Select(context.Background(), "q", candidates(), Preferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.FallbackUsed {
		t.Fatalf("expected fallback on advisor error")
	}
}

func TestSelectCapsTop3AndRejectedSample(t *testing.T) {
	s := NewSelector(WithAdvisor(&fakeAdvisor{text: `{"selected_index":0,"top_3":[0,1,2,0,1],"rejected_sample":[0,1,2,0,1,2]}`}))
	decision, err := s.Select(context.Background(), "q", candidates(), Preferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decision.TopCandidates) != 3 {
		t.Fatalf("expected top_3 capped at 3, got %d", len(decision.TopCandidates))
	}
	if len(decision.Rejected) != 5 {
		t.Fatalf("expected rejected_sample capped at 5, got %d", len(decision.Rejected))
	}
}
