// Package orchestrator drives the interactive multi-round search workflow
// (spec §4.9): parse the raw query, look up metadata candidates, group them
// for disambiguation, prefilter by torrent availability, let the caller pick
// one, search precisely for it, and hand the results to the candidate
// selector. Every stage degrades to a fallback rather than failing outright;
// the only errors that propagate are user-input errors.
package orchestrator

import (
	"context"
	"strings"

	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/selector"
)

const smallTorrentThresholdMB = 100

// Strategy is the disambiguation strategy offered for a song-type query at
// USER_SELECT (spec §4.9 step 5).
type Strategy string

const (
	StrategySingleOnly    Strategy = "single-only"
	StrategySingleOrAlbum Strategy = "single-or-album"
	StrategyOtherAlbums   Strategy = "other-albums"
	StrategyAuto          Strategy = "auto"
)

// SelectCandidateFunc is invoked at USER_SELECT with the surviving candidate
// releases and returns the index the caller picked plus the strategy (only
// meaningful for song-type queries). A nil func defaults to picking the
// first, highest-ranked survivor with StrategyAuto.
type SelectCandidateFunc func(ctx context.Context, candidates []domain.GroupedRelease) (index int, strategy Strategy, err error)

// ProgressFunc receives advisory progress updates. It must never block
// control flow; a nil func is a no-op.
type ProgressFunc func(percent int, message string)

// Options configures one orchestrator run.
type Options struct {
	FormatFilter    string
	MinSeeders      int
	Strict          bool
	SelectCandidate SelectCandidateFunc
	Progress        ProgressFunc
}

// Result is the orchestrator's terminal output: a search response plus the
// coarse exit classification and whichever selection decision was reached.
type Result struct {
	domain.SearchResponse
	ExitCode  domain.ExitCode
	Selection *domain.SelectionDecision
}

type queryParser interface {
	Parse(ctx context.Context, query string) (domain.ParsedQuery, error)
}

type metadataClient interface {
	SearchRecordings(ctx context.Context, query, artist string, limit int) ([]domain.MetadataRelease, error)
}

type releaseGrouper interface {
	Group(ctx context.Context, releases []domain.MetadataRelease, parsed domain.ParsedQuery) ([]domain.GroupedRelease, error)
}

type searchEngine interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error)
}

type candidateSelector interface {
	Select(ctx context.Context, query string, candidates []domain.MusicSource, prefs selector.Preferences) (domain.SelectionDecision, error)
}

// Orchestrator is the Search Orchestrator (C9).
type Orchestrator struct {
	parser   queryParser
	metadata metadataClient
	grouper  releaseGrouper
	engine   searchEngine
	selector candidateSelector
}

type Option func(*Orchestrator)

func WithParser(p queryParser) Option     { return func(o *Orchestrator) { o.parser = p } }
func WithMetadata(m metadataClient) Option { return func(o *Orchestrator) { o.metadata = m } }
func WithGrouper(g releaseGrouper) Option { return func(o *Orchestrator) { o.grouper = g } }
func WithEngine(e searchEngine) Option    { return func(o *Orchestrator) { o.engine = e } }
func WithSelector(s candidateSelector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) emit(progress ProgressFunc, percent int, message string) {
	if progress != nil {
		progress(percent, message)
	}
}

// Run executes the full workflow for one raw user query.
func (o *Orchestrator) Run(ctx context.Context, rawQuery string, opts Options) (Result, error) {
	progress := opts.Progress

	// 1. PARSE
	parsed, err := o.parser.Parse(ctx, rawQuery)
	if err != nil {
		return Result{}, err
	}
	o.emit(progress, 5, "parse complete")

	// 2. METADATA
	metaQuery := queryFromParsed(parsed)
	releases, err := o.metadata.SearchRecordings(ctx, metaQuery, parsed.Artist, 20)
	if err != nil || len(releases) == 0 {
		return o.fallbackDirect(ctx, rawQuery, opts, domain.ExitMetadataUnavailable)
	}
	o.emit(progress, 20, "metadata complete")

	// 3. GROUP
	grouped, err := o.grouper.Group(ctx, releases, parsed)
	if err != nil || len(grouped) == 0 {
		return o.fallbackDirect(ctx, rawQuery, opts, domain.ExitNoCandidates)
	}

	// 4. PREFILTER
	survivors := make([]domain.GroupedRelease, 0, len(grouped))
	for i, candidate := range grouped {
		query := candidate.Release.Artist + " " + candidate.Release.Album
		resp, err := o.engine.Search(ctx, domain.SearchRequest{
			Query:      query,
			MinSeeders: opts.MinSeeders,
		})
		o.emit(progress, 25+i, "prefilter candidate: "+candidate.Label)
		if err == nil && len(resp.Results) > 0 {
			survivors = append(survivors, candidate)
		}
	}
	if len(survivors) == 0 {
		return o.fallbackArtist(ctx, parsed, opts)
	}

	// 5. USER_SELECT
	index, strategy, err := o.selectCandidate(ctx, survivors, opts)
	if err != nil {
		return Result{}, err
	}
	if index < 0 || index >= len(survivors) {
		index = 0
	}
	selected := survivors[index]
	o.emit(progress, 50, "selection acknowledged")

	if parsed.SearchType == domain.SearchTypeSong {
		switch strategy {
		case StrategyAuto:
			return o.runAutoStrategy(ctx, parsed, selected, opts)
		case StrategySingleOrAlbum:
			return o.runSingleOrAlbumStrategy(ctx, parsed, selected, opts)
		case StrategyOtherAlbums:
			return o.runOtherAlbumsStrategy(ctx, parsed, selected, opts)
		}
	}

	return o.runSingleAttempt(ctx, parsed, selected, strategy, opts)
}

func (o *Orchestrator) selectCandidate(ctx context.Context, survivors []domain.GroupedRelease, opts Options) (int, Strategy, error) {
	if opts.SelectCandidate == nil {
		return 0, StrategyAuto, nil
	}
	return opts.SelectCandidate(ctx, survivors)
}

// runSingleAttempt implements steps 6-7 for a song query under the
// single-only (or an unrecognized) strategy, and for any non-song query type.
func (o *Orchestrator) runSingleAttempt(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, strategy Strategy, opts Options) (Result, error) {
	preferSongOnly := strategy == StrategySingleOnly
	query := buildTorrentQuery(selected.Release.Artist, selected.Release.Album, parsed.Song, preferSongOnly)

	resp, err := o.search(ctx, query, opts)
	if err != nil {
		return Result{}, err
	}
	o.emit(opts.Progress, 75, "search complete")

	prefs := selector.Preferences{
		PreferSongOnly: preferSongOnly,
		ExpectedAlbum:  selected.Release.Album,
		ExpectedArtist: selected.Release.Artist,
	}
	sources := toMusicSources(resp.Results)
	decision, err := o.selector.Select(ctx, query, sources, prefs)
	if err != nil {
		return Result{}, err
	}
	o.emit(opts.Progress, 100, "selection complete")

	return Result{SearchResponse: resp, ExitCode: exitCodeFor(resp), Selection: &decision}, nil
}

// runAutoStrategy implements the three-sub-attempt "auto" strategy for
// song-type queries (spec §4.9 "Sub-states"): try song-only small torrents,
// then a plain album search, then every other album carrying the song.
func (o *Orchestrator) runAutoStrategy(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, opts Options) (Result, error) {
	if result, ok := o.attemptSongOnly(ctx, parsed, selected, opts); ok {
		return result, nil
	}
	if result, ok := o.attemptAlbumSearch(ctx, parsed, selected, opts); ok {
		return result, nil
	}
	if result, ok, err := o.attemptOtherAlbums(ctx, parsed, selected, opts); err != nil {
		return Result{}, err
	} else if ok {
		return result, nil
	}
	return o.fallbackArtist(ctx, parsed, opts)
}

// runSingleOrAlbumStrategy implements the "single-or-album" sub-state: try
// song-only small torrents, falling through to a plain album search, without
// ever enumerating other albums.
func (o *Orchestrator) runSingleOrAlbumStrategy(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, opts Options) (Result, error) {
	if result, ok := o.attemptSongOnly(ctx, parsed, selected, opts); ok {
		return result, nil
	}
	if result, ok := o.attemptAlbumSearch(ctx, parsed, selected, opts); ok {
		return result, nil
	}
	return o.fallbackArtist(ctx, parsed, opts)
}

// runOtherAlbumsStrategy implements the "other-albums" sub-state: skip
// straight to enumerating other albums the metadata service knows carry this
// song, and pick the one with the most total seeders.
func (o *Orchestrator) runOtherAlbumsStrategy(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, opts Options) (Result, error) {
	result, ok, err := o.attemptOtherAlbums(ctx, parsed, selected, opts)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return result, nil
	}
	return o.fallbackArtist(ctx, parsed, opts)
}

// attemptSongOnly is sub-attempt A: search for the song alone, keep only
// small torrents, and accept the selection if it doesn't mismatch the
// selected album.
func (o *Orchestrator) attemptSongOnly(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, opts Options) (Result, bool) {
	query := buildTorrentQuery(selected.Release.Artist, selected.Release.Album, parsed.Song, true)
	resp, err := o.search(ctx, query, opts)
	o.emit(opts.Progress, 60, "auto attempt A")
	if err != nil {
		return Result{}, false
	}
	smallResults := filterBySize(resp.Results, smallTorrentThresholdMB)
	if len(smallResults) == 0 {
		return Result{}, false
	}
	decision, err := o.selector.Select(ctx, query, toMusicSources(smallResults), selector.Preferences{
		PreferSongOnly: true,
		ExpectedAlbum:  selected.Release.Album,
		ExpectedArtist: selected.Release.Artist,
	})
	if err != nil || decision.AlbumMismatch {
		return Result{}, false
	}
	resp.Results = smallResults
	o.emit(opts.Progress, 100, "selection complete")
	return Result{SearchResponse: resp, ExitCode: exitCodeFor(resp), Selection: &decision}, true
}

// attemptAlbumSearch is sub-attempt B: a straightforward album search.
func (o *Orchestrator) attemptAlbumSearch(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, opts Options) (Result, bool) {
	query := buildTorrentQuery(selected.Release.Artist, selected.Release.Album, parsed.Song, false)
	resp, err := o.search(ctx, query, opts)
	o.emit(opts.Progress, 70, "auto attempt B")
	if err != nil || len(resp.Results) == 0 {
		return Result{}, false
	}
	decision, err := o.selector.Select(ctx, query, toMusicSources(resp.Results), selector.Preferences{
		ExpectedAlbum:  selected.Release.Album,
		ExpectedArtist: selected.Release.Artist,
	})
	if err != nil || decision.AlbumMismatch {
		return Result{}, false
	}
	o.emit(opts.Progress, 100, "selection complete")
	return Result{SearchResponse: resp, ExitCode: exitCodeFor(resp), Selection: &decision}, true
}

// attemptOtherAlbums is sub-attempt C: try every other album the metadata
// service knows carries this song, and pick the one with the most total
// seeders.
func (o *Orchestrator) attemptOtherAlbums(ctx context.Context, parsed domain.ParsedQuery, selected domain.GroupedRelease, opts Options) (Result, bool, error) {
	o.emit(opts.Progress, 80, "auto attempt C")
	otherReleases, err := o.metadata.SearchRecordings(ctx, parsed.Song, selected.Release.Artist, 20)
	if err != nil || len(otherReleases) == 0 {
		return Result{}, false, nil
	}

	type candidateAttempt struct {
		query   string
		release domain.MetadataRelease
		resp    domain.SearchResponse
	}
	var best *candidateAttempt
	bestSeeders := -1
	for _, release := range otherReleases {
		if strings.EqualFold(strings.TrimSpace(release.Album), strings.TrimSpace(selected.Release.Album)) {
			continue
		}
		query := buildTorrentQuery(release.Artist, release.Album, parsed.Song, false)
		resp, err := o.search(ctx, query, opts)
		if err != nil || len(resp.Results) == 0 {
			continue
		}
		seeders := totalSeeders(resp.Results)
		if seeders > bestSeeders {
			bestSeeders = seeders
			attempt := candidateAttempt{query: query, release: release, resp: resp}
			best = &attempt
		}
	}
	if best == nil {
		return Result{}, false, nil
	}

	decision, err := o.selector.Select(ctx, best.query, toMusicSources(best.resp.Results), selector.Preferences{
		ExpectedAlbum:  best.release.Album,
		ExpectedArtist: best.release.Artist,
	})
	if err != nil {
		return Result{}, false, err
	}
	o.emit(opts.Progress, 100, "selection complete")
	return Result{SearchResponse: best.resp, ExitCode: exitCodeFor(best.resp), Selection: &decision}, true, nil
}

// fallbackArtist runs a generic search on the artist name alone.
func (o *Orchestrator) fallbackArtist(ctx context.Context, parsed domain.ParsedQuery, opts Options) (Result, error) {
	query := strings.TrimSpace(parsed.Artist)
	if query == "" {
		query = strings.TrimSpace(parsed.Song)
	}
	resp, err := o.search(ctx, query, opts)
	if err != nil {
		return Result{}, err
	}
	if len(resp.Results) == 0 {
		return Result{SearchResponse: resp, ExitCode: domain.ExitNoResults}, nil
	}
	decision, err := o.selector.Select(ctx, query, toMusicSources(resp.Results), selector.Preferences{})
	if err != nil {
		return Result{}, err
	}
	return Result{SearchResponse: resp, ExitCode: exitCodeFor(resp), Selection: &decision}, nil
}

// fallbackDirect runs the Engine search directly on the raw user query.
func (o *Orchestrator) fallbackDirect(ctx context.Context, rawQuery string, opts Options, exitCode domain.ExitCode) (Result, error) {
	resp, err := o.search(ctx, rawQuery, opts)
	if err != nil {
		return Result{}, err
	}
	if len(resp.Results) == 0 {
		return Result{SearchResponse: resp, ExitCode: domain.ExitNoResults}, nil
	}
	decision, err := o.selector.Select(ctx, rawQuery, toMusicSources(resp.Results), selector.Preferences{})
	if err != nil {
		return Result{}, err
	}
	return Result{SearchResponse: resp, ExitCode: exitCode, Selection: &decision}, nil
}

// search issues the Engine search honoring the user's format filter and
// falling back to "any format" once on zero results when not strict.
func (o *Orchestrator) search(ctx context.Context, query string, opts Options) (domain.SearchResponse, error) {
	resp, err := o.engine.Search(ctx, domain.SearchRequest{
		Query:        query,
		FormatFilter: opts.FormatFilter,
		MinSeeders:   opts.MinSeeders,
		Strict:       opts.Strict,
	})
	if err != nil {
		return domain.SearchResponse{}, err
	}
	if len(resp.Results) == 0 && opts.FormatFilter != "" && !opts.Strict {
		return o.engine.Search(ctx, domain.SearchRequest{
			Query:      query,
			MinSeeders: opts.MinSeeders,
		})
	}
	return resp, nil
}

func queryFromParsed(parsed domain.ParsedQuery) string {
	switch parsed.SearchType {
	case domain.SearchTypeSong:
		return strings.TrimSpace(parsed.Artist + " " + parsed.Song)
	case domain.SearchTypeAlbum, domain.SearchTypeDiscography:
		return strings.TrimSpace(parsed.Artist + " " + parsed.Album)
	default:
		return strings.TrimSpace(parsed.Artist)
	}
}

func toMusicSources(ranked []domain.RankedSource) []domain.MusicSource {
	sources := make([]domain.MusicSource, len(ranked))
	for i, r := range ranked {
		sources[i] = r.Source
	}
	return sources
}

func filterBySize(ranked []domain.RankedSource, maxMB int64) []domain.RankedSource {
	limit := maxMB * 1024 * 1024
	out := make([]domain.RankedSource, 0, len(ranked))
	for _, r := range ranked {
		if r.Source.SizeBytes > 0 && r.Source.SizeBytes < limit {
			out = append(out, r)
		}
	}
	return out
}

func totalSeeders(ranked []domain.RankedSource) int {
	total := 0
	for _, r := range ranked {
		if r.Source.Seeders != nil {
			total += *r.Source.Seeders
		}
	}
	return total
}

func exitCodeFor(resp domain.SearchResponse) domain.ExitCode {
	if resp.TotalFound == 0 {
		return domain.ExitNoResults
	}
	return domain.ExitOK
}
