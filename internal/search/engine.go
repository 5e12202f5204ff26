// Package search implements the Search Engine (C4): it fans a query out to
// every healthy adapter, deduplicates and filters the combined result list,
// and returns it in a fully deterministic order.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"musicsearch/searchcore/internal/adapters"
	"musicsearch/searchcore/internal/adapters/health"
	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/quality"
)

const defaultConcurrency = 8

// AdapterEntry pairs an Adapter implementation with its configuration.
type AdapterEntry struct {
	Adapter adapters.Adapter
	Config  domain.AdapterConfig
}

// Engine is the Search Engine (C4).
type Engine struct {
	entries     []AdapterEntry
	health      *health.Tracker
	concurrency int64
	logger      *slog.Logger
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func WithHealthTracker(t *health.Tracker) EngineOption {
	return func(e *Engine) { e.health = t }
}

func WithConcurrency(n int64) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine builds an Engine over a fixed set of adapters.
func NewEngine(entries []AdapterEntry, opts ...EngineOption) *Engine {
	e := &Engine{
		entries:     entries,
		health:      health.NewTracker(),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type adapterOutcome struct {
	name    string
	results []domain.MusicSource
	err     error
}

// Search implements the C4 algorithm: partition healthy adapters, fan out
// concurrently, concatenate, dedupe by identity, filter, and sort.
func (e *Engine) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return domain.SearchResponse{}, domain.ErrEmptyQuery
	}

	var healthySources, skippedSources []string
	var healthyEntries []AdapterEntry
	for _, entry := range e.entries {
		if e.health.IsHealthy(entry.Adapter.Name()) {
			healthyEntries = append(healthyEntries, entry)
			healthySources = append(healthySources, entry.Adapter.Name())
		} else {
			skippedSources = append(skippedSources, entry.Adapter.Name())
		}
	}

	outcomes := e.fanOut(ctx, req.Query, healthyEntries)

	var combined []domain.MusicSource
	for _, outcome := range outcomes {
		if outcome.err != nil {
			e.health.RecordFailure(outcome.name)
			e.logger.Warn("adapter search failed",
				slog.String("adapter", outcome.name),
				slog.String("error", outcome.err.Error()))
			continue
		}
		e.health.RecordSuccess(outcome.name)
		combined = append(combined, outcome.results...)
	}

	deduped := dedupe(combined)
	filtered := filterResults(deduped, req)
	for i := range filtered {
		filtered[i].QualityScore = quality.Score(filtered[i])
	}
	sortResults(filtered)

	response := domain.SearchResponse{
		Query:          req.Query,
		TotalFound:     len(filtered),
		Results:        toRanked(filtered),
		HealthySources: healthySources,
		SkippedSources: skippedSources,
	}
	return response, nil
}

func (e *Engine) fanOut(ctx context.Context, query string, entries []AdapterEntry) []adapterOutcome {
	outcomes := make([]adapterOutcome, len(entries))
	sem := semaphore.NewWeighted(e.concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		i, entry := i, entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = adapterOutcome{name: entry.Adapter.Name(), err: err}
				return
			}
			defer sem.Release(1)

			results, err := adapters.WithRetry(ctx, entry.Config.BaseURL, func(ctx context.Context) ([]domain.MusicSource, error) {
				return entry.Adapter.Search(ctx, query, entry.Config)
			})
			outcomes[i] = adapterOutcome{name: entry.Adapter.Name(), results: results, err: err}
		}()
	}
	wg.Wait()
	return outcomes
}

// dedupe keeps the first occurrence for each non-empty identity; results
// with empty identity are always kept.
func dedupe(sources []domain.MusicSource) []domain.MusicSource {
	seen := make(map[string]struct{}, len(sources))
	out := make([]domain.MusicSource, 0, len(sources))
	for _, s := range sources {
		id := domain.DeriveIdentity(s)
		if s.ID == "" {
			s.ID = id
		}
		if id == "" {
			out = append(out, s)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s)
	}
	return out
}

func filterResults(sources []domain.MusicSource, req domain.SearchRequest) []domain.MusicSource {
	format := strings.TrimSpace(req.FormatFilter)
	useFormatFilter := format != "" && format != "*"

	out := make([]domain.MusicSource, 0, len(sources))
	for _, s := range sources {
		if s.Seeders != nil && *s.Seeders < req.MinSeeders {
			continue
		}
		if useFormatFilter && !strings.EqualFold(s.Format, format) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sortResults(sources []domain.MusicSource) {
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].QualityScore != sources[j].QualityScore {
			return sources[i].QualityScore > sources[j].QualityScore
		}
		return domain.DeriveIdentity(sources[i]) < domain.DeriveIdentity(sources[j])
	})
}

func toRanked(sources []domain.MusicSource) []domain.RankedSource {
	ranked := make([]domain.RankedSource, len(sources))
	for i, s := range sources {
		ranked[i] = domain.RankedSource{
			Source:      s,
			Rank:        i + 1,
			Explanation: explanationFor(s),
			Tags:        tagsFor(s),
		}
	}
	return ranked
}

func explanationFor(s domain.MusicSource) string {
	switch {
	case s.SourceKind == domain.SourceKindTorrent && s.Seeders != nil:
		return "torrent result ranked by format and seeder count"
	case s.SourceKind != domain.SourceKindTorrent:
		return "stream result ranked by codec and bitrate"
	default:
		return "ranked by quality score"
	}
}

func tagsFor(s domain.MusicSource) []string {
	var tags []string
	format := strings.ToUpper(s.Format)
	if format == "FLAC" || format == "ALAC" {
		tags = append(tags, "lossless")
	}
	if strings.Contains(strings.ToLower(s.Title), "24/192") || strings.Contains(strings.ToLower(s.Title), "dsd") {
		tags = append(tags, "hi-res")
	}
	if s.Seeders != nil && *s.Seeders >= 50 {
		tags = append(tags, "fast", "popular")
	}
	if s.SourceKind != domain.SourceKindTorrent {
		tags = append(tags, "stream")
	}
	if s.QualityScore >= 280 {
		tags = append(tags, "best")
	}
	return tags
}
