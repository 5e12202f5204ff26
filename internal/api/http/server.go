// Package apihttp exposes the search core over HTTP: a synchronous search
// endpoint, an on-demand stream resolver, a health check, and a
// Server-Sent-Events channel that drives the interactive orchestrator and
// reports progress as it runs (spec §6).
package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/orchestrator"
	"musicsearch/searchcore/internal/queryparser"
	"musicsearch/searchcore/internal/session"
)

const (
	defaultSearchLimit = 50
	defaultMinSeeders  = 1
)

// searchEngine is the narrow view of search.Engine this package depends on.
type searchEngine interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error)
}

// orchestratorRunner is the narrow view of orchestrator.Orchestrator this
// package depends on.
type orchestratorRunner interface {
	Run(ctx context.Context, rawQuery string, opts orchestrator.Options) (orchestrator.Result, error)
}

// StreamResolver resolves a catalog track ID to a playable stream URL. It is
// bound to whichever stream-capable adapter and config the caller wired up;
// a nil resolver makes POST /resolve always answer 503.
type StreamResolver func(ctx context.Context, videoID string) (string, error)

// Server wires the HTTP surface over the search core.
type Server struct {
	logger       *slog.Logger
	engine       searchEngine
	orchestrator orchestratorRunner
	resolver     StreamResolver
	sessionStats *session.Stats
	requestTimeout time.Duration
	rateLimitRPS float64
	rateLimitBurst int
}

// Option configures a Server.
type Option func(*Server)

func WithEngine(engine searchEngine) Option {
	return func(s *Server) { s.engine = engine }
}

func WithOrchestrator(runner orchestratorRunner) Option {
	return func(s *Server) { s.orchestrator = runner }
}

func WithStreamResolver(resolver StreamResolver) Option {
	return func(s *Server) { s.resolver = resolver }
}

func WithSessionStats(stats *session.Stats) Option {
	return func(s *Server) { s.sessionStats = stats }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

// New builds a Server. engine, orchestrator and resolver are each optional;
// an endpoint whose dependency is unset answers 503.
func New(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		logger:         logger,
		requestTimeout: 20 * time.Second,
		rateLimitRPS:   10,
		rateLimitBurst: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler assembles the routed, middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/resolve", s.handleResolve)
	mux.HandleFunc("/search/stream", s.handleSearchStream)

	var handler http.Handler = mux
	handler = metricsMiddleware(handler)
	handler = recoveryMiddleware(s.logger, handler)
	handler = loggingMiddleware(s.logger, handler)
	if s.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst, handler)
	}
	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{"status": "ok"}
	if s.sessionStats != nil {
		payload["advisor_usage"] = s.sessionStats.Summary()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "search engine not configured")
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	req, sqlQuery, postFilter, err := s.buildSearchRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	resp, err := s.engine.Search(ctx, req)
	if err != nil {
		s.respondSearchError(w, err)
		return
	}
	resp.SQLQuery = sqlQuery
	resp = postFilter.apply(resp)
	resp = applyLimit(resp, body.Limit)

	writeJSON(w, http.StatusOK, toSearchResponseBody(resp))
}

// resultBound is an inclusive [min, max] bound parsed from a SQL-ish clause
// value; either side may be unset (nil).
type resultBound struct {
	min *int64
	max *int64
}

// searchPostFilter holds clause constraints the Search Engine itself has no
// field for (an upper seeders bound, any size bound) and applies them to the
// already-ranked response.
type searchPostFilter struct {
	seedersMax *int64
	size       resultBound
}

func (f searchPostFilter) apply(resp domain.SearchResponse) domain.SearchResponse {
	if f.seedersMax == nil && f.size.min == nil && f.size.max == nil {
		return resp
	}
	kept := make([]domain.RankedSource, 0, len(resp.Results))
	for _, r := range resp.Results {
		if f.seedersMax != nil && r.Source.Seeders != nil && int64(*r.Source.Seeders) > *f.seedersMax {
			continue
		}
		if f.size.min != nil && r.Source.SizeBytes < *f.size.min {
			continue
		}
		if f.size.max != nil && r.Source.SizeBytes > *f.size.max {
			continue
		}
		kept = append(kept, r)
	}
	resp.Results = kept
	resp.TotalFound = len(kept)
	return resp
}

// parseBound decodes the value encoding produced by queryparser.ParseSQL:
// a bare number ("50"), a comparison (">=50", "<=50"), or a BETWEEN range
// ("10..100"). Returns a zero resultBound if it cannot be parsed.
func parseBound(raw string) resultBound {
	switch {
	case strings.HasPrefix(raw, ">="):
		if n, err := strconv.ParseInt(raw[2:], 10, 64); err == nil {
			return resultBound{min: &n}
		}
	case strings.HasPrefix(raw, "<="):
		if n, err := strconv.ParseInt(raw[2:], 10, 64); err == nil {
			return resultBound{max: &n}
		}
	case strings.Contains(raw, ".."):
		parts := strings.SplitN(raw, "..", 2)
		lo, errLo := strconv.ParseInt(parts[0], 10, 64)
		hi, errHi := strconv.ParseInt(parts[1], 10, 64)
		if errLo == nil && errHi == nil {
			return resultBound{min: &lo, max: &hi}
		}
	default:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return resultBound{min: &n, max: &n}
		}
	}
	return resultBound{}
}

// buildSearchRequest normalizes the wire request into a domain.SearchRequest,
// expanding the SQL-ish grammar when present (spec §4.5): the query becomes
// whichever of artist/album/track the clauses name, joined with a space,
// format seeds FormatFilter, and seeders/size clauses seed MinSeeders plus
// whatever upper/size bound the Search Engine itself cannot express (applied
// by the returned searchPostFilter once results come back).
func (s *Server) buildSearchRequest(body searchRequestBody) (domain.SearchRequest, string, searchPostFilter, error) {
	raw := strings.TrimSpace(body.Query)
	if raw == "" {
		return domain.SearchRequest{}, "", searchPostFilter{}, domain.ErrEmptyQuery
	}

	req := domain.SearchRequest{
		Query:        raw,
		FormatFilter: body.FormatFilter,
		MinSeeders:   defaultMinSeeders,
	}
	if body.MinSeeders != nil {
		req.MinSeeders = *body.MinSeeders
	}

	if !queryparser.IsSQLQuery(raw) {
		return req, "", searchPostFilter{}, nil
	}

	parsed, err := queryparser.ParseSQL(raw)
	if err != nil {
		return domain.SearchRequest{}, "", searchPostFilter{}, err
	}

	var terms []string
	for _, key := range []string{"artist", "album", "track"} {
		if value, ok := parsed.Clauses[key]; ok && value != "" {
			terms = append(terms, value)
		}
	}
	if len(terms) > 0 {
		req.Query = strings.Join(terms, " ")
	}
	if format, ok := parsed.Clauses["format"]; ok && format != "" {
		req.FormatFilter = format
	}

	var postFilter searchPostFilter
	if value, ok := parsed.Clauses["seeders"]; ok && value != "" {
		bound := parseBound(value)
		if bound.min != nil && int(*bound.min) > req.MinSeeders {
			req.MinSeeders = int(*bound.min)
		}
		postFilter.seedersMax = bound.max
	}
	if value, ok := parsed.Clauses["size"]; ok && value != "" {
		postFilter.size = parseBound(value)
	}

	return req, raw, postFilter, nil
}

func applyLimit(resp domain.SearchResponse, limit *int) domain.SearchResponse {
	n := defaultSearchLimit
	if limit != nil && *limit > 0 {
		n = *limit
	}
	if len(resp.Results) > n {
		resp.Results = resp.Results[:n]
	}
	return resp
}

func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", err.Error())
	default:
		s.logger.Error("search failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "search_failed", "search failed")
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	var body resolveRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	body.VideoID = strings.TrimSpace(body.VideoID)
	if body.VideoID == "" {
		writeJSON(w, http.StatusBadRequest, resolveResponseBody{VideoID: body.VideoID, Success: false, Error: "video_id is required"})
		return
	}
	if s.resolver == nil {
		writeJSON(w, http.StatusServiceUnavailable, resolveResponseBody{VideoID: body.VideoID, Success: false, Error: "stream resolution not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	streamURL, err := s.resolver(ctx, body.VideoID)
	if err != nil {
		writeJSON(w, http.StatusOK, resolveResponseBody{VideoID: body.VideoID, Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resolveResponseBody{VideoID: body.VideoID, StreamURL: streamURL, Success: true})
}

// handleSearchStream drives a full orchestrator run over Server-Sent Events:
// progress frames as the state machine advances, then one terminal result or
// error frame.
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if s.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "orchestrator not configured")
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(msg streamMessage) {
		payload, err := json.Marshal(msg)
		if err != nil {
			return
		}
		w.Write([]byte("data: "))
		w.Write(payload)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	minSeeders := defaultMinSeeders
	if body.MinSeeders != nil {
		minSeeders = *body.MinSeeders
	}

	opts := orchestrator.Options{
		FormatFilter: body.FormatFilter,
		MinSeeders:   minSeeders,
		Progress: func(percent int, message string) {
			emit(streamMessage{Type: "progress", Percent: percent, Message: message})
		},
	}

	result, err := s.orchestrator.Run(r.Context(), body.Query, opts)
	if err != nil {
		emit(streamMessage{Type: "error", Message: err.Error()})
		return
	}
	resp := applyLimit(result.SearchResponse, body.Limit)
	emit(streamMessage{Type: "result", Data: toSearchResponseBody(resp)})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
