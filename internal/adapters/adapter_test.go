package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"musicsearch/searchcore/internal/domain"
)

func TestIsLocalhostVariants(t *testing.T) {
	cases := map[string]bool{
		"http://localhost:9117":  true,
		"http://127.0.0.1:9117":  true,
		"http://[::1]:9117":      true,
		"https://jackett.example.com": false,
		"not a url %%":           false,
		"":                       false,
	}
	for url, want := range cases {
		if got := IsLocalhost(url); got != want {
			t.Errorf("IsLocalhost(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	results, err := WithRetry(context.Background(), "https://remote.example.com", func(ctx context.Context) ([]domain.MusicSource, error) {
		calls++
		return []domain.MusicSource{{Title: "ok"}}, nil
	})
	if err != nil || len(results) != 1 || calls != 1 {
		t.Fatalf("unexpected: calls=%d err=%v results=%v", calls, err, results)
	}
}

func TestWithRetryLocalhostNeverRetries(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), "http://localhost:9117", func(ctx context.Context) ([]domain.MusicSource, error) {
		calls++
		return nil, errors.New("boom")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected single call for localhost adapter, got calls=%d err=%v", calls, err)
	}
}

func TestWithRetryRemoteRetriesOnce(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := withRetryTimed(t, func(ctx context.Context) ([]domain.MusicSource, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return []domain.MusicSource{{Title: "recovered"}}, nil
	})
	if err != nil {
		t.Fatalf("expected success on retry, got err=%v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
	if time.Since(start) < 0 {
		t.Fatalf("sanity: time moved backwards")
	}
}

func TestWithRetryRemoteGivesUpAfterOneRetry(t *testing.T) {
	calls := 0
	_, err := withRetryTimed(t, func(ctx context.Context) ([]domain.MusicSource, error) {
		calls++
		return nil, errors.New("still failing")
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected exactly 2 attempts then give up, got calls=%d err=%v", calls, err)
	}
}

func TestWithRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := WithRetry(ctx, "https://remote.example.com", func(ctx context.Context) ([]domain.MusicSource, error) {
		calls++
		return nil, ctx.Err()
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected no retry after cancellation, got calls=%d err=%v", calls, err)
	}
}

// withRetryTimed shrinks the package's retry backoff for the duration of a
// single call so the remote-retry tests stay fast and deterministic.
func withRetryTimed(t *testing.T, fn func(ctx context.Context) ([]domain.MusicSource, error)) ([]domain.MusicSource, error) {
	t.Helper()
	return withRetryBackoff(context.Background(), "https://remote.example.com", time.Millisecond, fn)
}
