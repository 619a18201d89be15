package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/seo-optimizer/insights/analyzer"
	"github.com/seo-optimizer/insights/api"
	"github.com/seo-optimizer/insights/config"
	"github.com/seo-optimizer/insights/history"
	"github.com/seo-optimizer/insights/logging"
	"github.com/seo-optimizer/insights/middleware"
	"github.com/seo-optimizer/insights/page"
	"github.com/seo-optimizer/insights/pagespeed"
	"github.com/seo-optimizer/insights/remediation"
	"github.com/seo-optimizer/insights/stats"
)

const (
	shutdownTimeout     = 10 * time.Second
	maintenanceInterval = time.Hour
	statsRetainMonths   = 2
)

func loadEnv() {
	// Try .env.development first (local development), then .env
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
		}
	}
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	gin.SetMode(cfg.GinMode)

	if cfg.PageSpeedAPIKey == "" {
		logger.Warn("PAGESPEED_API_KEY is not set; analysis requests will fail until it is configured")
	}
	if !cfg.HasLLM() {
		logger.Warn("no LLM API key is set; remediation requests will return the fallback message")
	}

	monthly, err := stats.NewStorage(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer monthly.Close()

	visitors, err := logging.NewStatistics(cfg.DataDir, cfg.DevMode)
	if err != nil {
		logger.Warn("could not load existing statistics", "error", err)
	}

	reports, err := history.Open(cfg.HistoryDB, logger)
	if err != nil {
		return err
	}
	defer reports.Close()

	fetcher := page.NewFetcher()
	cache, closeCache, err := newCache(cfg, fetcher, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	provider, err := pagespeed.NewClient(context.Background(), cfg.PageSpeedEndpoint, cfg.PageSpeedAPIKey, cfg.PageSpeedStrategy, logger)
	if err != nil {
		return err
	}

	seoAnalyzer := analyzer.New(provider, cache, logger,
		analyzer.WithPageSnapshots(fetcher),
		analyzer.WithHistory(reports),
		analyzer.WithStats(monthly),
		analyzer.WithPollInterval(cfg.StatusPollInterval),
	)

	openaiAdvisor, anthropicAdvisor := advisors(cfg, monthly, logger)
	defaultAdvisor := openaiAdvisor
	if defaultAdvisor == nil {
		defaultAdvisor = anthropicAdvisor
	}

	handler := api.New(seoAnalyzer, logger,
		api.WithAdvisors(defaultAdvisor, openaiAdvisor, anthropicAdvisor),
		api.WithReports(reports, history.NewFeed(reports, cfg.PublicBaseURL)),
		api.WithStatistics(visitors, monthly),
	)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.ErrorHandler(logger),
		middleware.CORS(),
		middleware.Stats(visitors, logger),
	)
	handler.RegisterRoutes(r.Group("/api", rateLimiter.RateLimit()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go maintain(ctx, rateLimiter, monthly, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", "http://localhost:"+cfg.Port, "gin_mode", cfg.GinMode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := visitors.Save(); err != nil {
		logger.Warn("failed to save statistics", "error", err)
	}
	return nil
}

func advisors(cfg config.Config, recorder remediation.OutcomeRecorder, logger *slog.Logger) (openaiAdvisor, anthropicAdvisor *remediation.Advisor) {
	if cfg.OpenAIAPIKey != "" {
		openaiAdvisor = remediation.NewAdvisor(
			remediation.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), recorder, logger)
	}
	if cfg.AnthropicAPIKey != "" {
		anthropicAdvisor = remediation.NewAdvisor(
			remediation.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL), recorder, logger)
	}
	return openaiAdvisor, anthropicAdvisor
}

// maintain prunes idle rate-limit buckets and old monthly statistics.
func maintain(ctx context.Context, rl *middleware.RateLimiter, monthly *stats.Storage, logger *slog.Logger) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := rl.Prune(maintenanceInterval)
			monthly.Cleanup(statsRetainMonths)
			logger.Debug("maintenance complete", "rate_limit_buckets_pruned", pruned)
		}
	}
}

// newCache returns the shared Redis cache when REDIS_URL is set and the
// in-process LRU otherwise.
func newCache(cfg config.Config, hasher analyzer.Hasher, logger *slog.Logger) (*analyzer.Cache, func(), error) {
	if cfg.RedisURL == "" {
		cache, err := analyzer.NewCache(hasher, cfg.CacheTTL, cfg.CacheMaxEntries, logger)
		return cache, func() {}, err
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Reads and writes degrade to misses until Redis is reachable.
		logger.Warn("redis is not reachable", "addr", opts.Addr, "error", err)
	} else {
		logger.Info("using redis analysis cache", "addr", opts.Addr, "prefix", cfg.RedisPrefix)
	}

	cache := analyzer.NewRedisCache(client, cfg.RedisPrefix, hasher, cfg.CacheTTL, logger)
	return cache, func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}, nil
}
