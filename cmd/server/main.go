package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"musicsearch/searchcore/internal/adapters"
	"musicsearch/searchcore/internal/adapters/health"
	"musicsearch/searchcore/internal/adapters/scrape"
	"musicsearch/searchcore/internal/adapters/streamcatalog"
	"musicsearch/searchcore/internal/adapters/torznab"
	"musicsearch/searchcore/internal/advisor"
	apihttp "musicsearch/searchcore/internal/api/http"
	"musicsearch/searchcore/internal/app"
	"musicsearch/searchcore/internal/domain"
	"musicsearch/searchcore/internal/factory"
	"musicsearch/searchcore/internal/grouper"
	"musicsearch/searchcore/internal/metadataservice"
	"musicsearch/searchcore/internal/metrics"
	"musicsearch/searchcore/internal/orchestrator"
	"musicsearch/searchcore/internal/queryparser"
	"musicsearch/searchcore/internal/search"
	"musicsearch/searchcore/internal/selector"
	"musicsearch/searchcore/internal/session"
	"musicsearch/searchcore/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "musicsearchcore")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "musicsearchcore"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("profileDocPath", cfg.ProfileDocPath),
		slog.String("defaultProfile", cfg.DefaultProfile),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasAdvisorKey", strings.TrimSpace(cfg.AdvisorAPIKey) != ""),
		slog.String("metadataBaseURL", cfg.MetadataBaseURL),
	)

	redisClient := buildRedisClient(cfg, logger)
	runtimeStore := buildRuntimeConfigStore(redisClient, logger)

	profile := loadProfile(cfg, runtimeStore, logger)
	entries, resolver := buildAdapterEntries(profile, cfg, logger)
	if len(entries) == 0 {
		logger.Warn("no adapters enabled, search will always return empty results",
			slog.String("profile", cfg.DefaultProfile))
	}

	healthTracker := health.NewTracker()
	engine := search.NewEngine(entries,
		search.WithLogger(logger),
		search.WithHealthTracker(healthTracker),
		search.WithConcurrency(int64(cfg.SearchConcurrency)),
	)

	sessionStats := session.NewStats()
	advisorClient := advisor.NewTrackingAdvisor(advisor.NewHTTPClient(advisor.Config{
		Client:  &http.Client{Timeout: 20 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		BaseURL: cfg.AdvisorBaseURL,
		APIKey:  cfg.AdvisorAPIKey,
		Model:   cfg.AdvisorModel,
	}), sessionStats)

	metadataClient := metadataservice.NewClient(
		metadataservice.WithBaseURL(cfg.MetadataBaseURL),
		metadataservice.WithUserAgent(cfg.MetadataUserAgent),
		metadataservice.WithHTTPClient(&http.Client{Timeout: 15 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	)

	orch := orchestrator.New(
		orchestrator.WithParser(queryparser.NewParser(queryparser.WithAdvisor(advisorClient))),
		orchestrator.WithMetadata(metadataClient),
		orchestrator.WithGrouper(grouper.NewGrouper(grouper.WithAdvisor(advisorClient), grouper.WithMaxGroups(cfg.MaxGroups))),
		orchestrator.WithEngine(engine),
		orchestrator.WithSelector(selector.NewSelector(selector.WithAdvisor(advisorClient))),
	)

	srv := apihttp.New(logger,
		apihttp.WithEngine(engine),
		apihttp.WithOrchestrator(orch),
		apihttp.WithStreamResolver(resolver),
		apihttp.WithRequestTimeout(cfg.RequestTimeout),
		apihttp.WithSessionStats(sessionStats),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// SSE streaming (/search/stream) can legitimately exceed short write timeouts.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Info("music search core started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
		slog.Int("adapterCount", len(entries)),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("music search core stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildRedisClient(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, runtime overrides disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, runtime overrides disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return client
}

func buildRuntimeConfigStore(client *redis.Client, logger *slog.Logger) factory.RuntimeConfigStore {
	if client == nil {
		return nil
	}
	return factory.NewRedisRuntimeConfigStore(client, "")
}

// loadProfile reads the configured profile document, applies any operator
// overrides saved in Redis on top of it, and resolves the default profile.
func loadProfile(cfg app.Config, store factory.RuntimeConfigStore, logger *slog.Logger) domain.SourceProfile {
	f, err := factory.Load(cfg.ProfileDocPath)
	if err != nil {
		logger.Warn("profile document load failed, using built-in profile", slog.String("error", err.Error()))
	}

	substitutionContext := factory.BuildContext(nil)
	if store != nil {
		applyStoredOverrides(context.Background(), store, substitutionContext, logger)
	}

	return f.LoadProfile(cfg.DefaultProfile, substitutionContext)
}

func applyStoredOverrides(ctx context.Context, store factory.RuntimeConfigStore, substitutionContext map[string]string, logger *slog.Logger) {
	contextPrefixes := map[string]string{"jackett": "JACKETT", "prowlarr": "PROWLARR", "streamcatalog": "STREAM_CATALOG"}
	for _, adapterName := range []string{"jackett", "prowlarr", "streamcatalog"} {
		override, found, err := store.Load(ctx, adapterName)
		if err != nil {
			logger.Warn("runtime override lookup failed", slog.String("adapter", adapterName), slog.String("error", err.Error()))
			continue
		}
		if found {
			factory.ApplyOverride(substitutionContext, contextPrefixes[adapterName], override)
		}
	}
}

// buildAdapterEntries instantiates a concrete Adapter for every enabled
// entry in profile, matched by wire-protocol variant. The first
// stream-capable adapter it finds is bound into the returned resolver; nil
// if none is enabled.
func buildAdapterEntries(profile domain.SourceProfile, cfg app.Config, logger *slog.Logger) ([]search.AdapterEntry, apihttp.StreamResolver) {
	entries := make([]search.AdapterEntry, 0, len(profile.Adapters))
	var resolver apihttp.StreamResolver

	for _, adapterCfg := range profile.Adapters {
		client := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

		var instance adapters.Adapter
		switch adapterCfg.Type {
		case domain.AdapterVariantTorznab:
			instance = torznab.NewProvider(client)
		case domain.AdapterVariantHTML:
			instance = scrape.NewProvider(scrape.Config{Endpoint: adapterCfg.BaseURL, UserAgent: cfg.UserAgent, Client: client})
		case domain.AdapterVariantStream:
			streamProvider := streamcatalog.NewProvider(adapterCfg.Name, streamcatalog.Config{Client: client})
			instance = streamProvider
			if resolver == nil {
				boundConfig := adapterCfg
				resolver = func(ctx context.Context, videoID string) (string, error) {
					return streamProvider.Resolve(ctx, videoID, boundConfig)
				}
			}
		default:
			logger.Warn("unknown adapter type, skipping", slog.String("adapter", adapterCfg.Name), slog.String("type", string(adapterCfg.Type)))
			continue
		}

		entries = append(entries, search.AdapterEntry{Adapter: instance, Config: adapterCfg})
	}

	return entries, resolver
}
