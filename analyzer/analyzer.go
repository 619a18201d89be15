package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seo-optimizer/insights/errs"
	"github.com/seo-optimizer/insights/page"
	"github.com/seo-optimizer/insights/pagespeed"
	"github.com/seo-optimizer/insights/requestid"
)

// AuditProvider runs an upstream audit for a URL.
type AuditProvider interface {
	Run(ctx context.Context, url string) (*pagespeed.LighthouseResult, error)
}

// PageSnapshotter fetches metadata about the live page.
type PageSnapshotter interface {
	Snapshot(ctx context.Context, url string) (page.Snapshot, error)
}

// ReportRecorder keeps completed reports.
type ReportRecorder interface {
	Save(ctx context.Context, result *AnalysisResult) error
}

// StatsRecorder counts cache outcomes.
type StatsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Analyzer produces analysis reports, serving repeat requests from the cache.
type Analyzer struct {
	provider AuditProvider
	cache    *Cache
	pages    PageSnapshotter
	history  ReportRecorder
	stats    StatsRecorder
	logger   *slog.Logger

	pollInterval time.Duration
	now          func() time.Time

	group      singleflight.Group
	inflightMu sync.Mutex
	inflight   map[string]int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithPageSnapshots attaches page title and description to new reports.
func WithPageSnapshots(p PageSnapshotter) Option {
	return func(a *Analyzer) { a.pages = p }
}

// WithHistory records every fresh report.
func WithHistory(r ReportRecorder) Option {
	return func(a *Analyzer) { a.history = r }
}

// WithStats counts cache hits and misses.
func WithStats(s StatsRecorder) Option {
	return func(a *Analyzer) { a.stats = s }
}

// WithPollInterval sets the delay suggested to clients polling a pending analysis.
func WithPollInterval(d time.Duration) Option {
	return func(a *Analyzer) { a.pollInterval = d }
}

// New creates an Analyzer backed by provider and cache.
func New(provider AuditProvider, cache *Cache, logger *slog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider:     provider,
		cache:        cache,
		logger:       logger,
		pollInterval: 5 * time.Second,
		now:          time.Now,
		inflight:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the report for rawURL. Concurrent misses for the same URL
// share one upstream run. The upstream run is detached from ctx cancellation
// so a client that stops waiting can still pick the result up via Status.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*AnalysisResult, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	logger := a.logger.With("url", target.URL, "request_id", requestid.FromContext(ctx))

	if result, ok := a.cache.Get(ctx, target.Key, target.URL); ok {
		a.recordHit()
		logger.Info("analysis served from cache")
		return result, nil
	}
	a.recordMiss()

	v, err, shared := a.group.Do(target.Key, func() (any, error) {
		return a.refresh(context.WithoutCancel(ctx), target, logger)
	})
	if err != nil {
		attrs := []any{"error", err, "shared", shared}
		var appErr *errs.AppError
		if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
			attrs = append(attrs, "upstream_status", appErr.UpstreamStatus)
		}
		logger.Error("analysis failed", attrs...)
		return nil, err
	}
	return v.(*AnalysisResult), nil
}

func (a *Analyzer) refresh(ctx context.Context, target Target, logger *slog.Logger) (*AnalysisResult, error) {
	a.markInflight(target.Key)
	defer a.unmarkInflight(target.Key)

	var (
		lr      *pagespeed.LighthouseResult
		snap    page.Snapshot
		snapErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lr, err = a.provider.Run(gctx, target.URL)
		return err
	})
	if a.pages != nil {
		g.Go(func() error {
			snap, snapErr = a.pages.Snapshot(gctx, target.URL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := BuildResult(target.URL, lr, a.now())
	if a.pages != nil && snapErr == nil && (snap.Title != "" || snap.Description != "") {
		result.Page = &PageInfo{Title: snap.Title, Description: snap.Description}
	} else if snapErr != nil {
		logger.Debug("page snapshot failed", "error", snapErr)
	}

	a.cache.Put(ctx, target.Key, target.URL, result)

	if a.history != nil {
		if err := a.history.Save(ctx, result); err != nil {
			logger.Warn("failed to record report", "error", err)
		}
	}

	logger.Info("analysis complete",
		"overall", result.Scores.Overall,
		"performance", result.Scores.Performance,
		"seo", result.Scores.SEO,
		"accessibility", result.Scores.Accessibility,
		"best_practices", result.Scores.BestPractices,
		"performance_issues", len(result.Audits.Performance),
		"seo_issues", len(result.Audits.SEO),
		"technical_issues", len(result.Audits.BestPractices),
	)
	return result, nil
}

func (a *Analyzer) markInflight(key string) {
	a.inflightMu.Lock()
	a.inflight[key]++
	a.inflightMu.Unlock()
}

func (a *Analyzer) unmarkInflight(key string) {
	a.inflightMu.Lock()
	if a.inflight[key] <= 1 {
		delete(a.inflight, key)
	} else {
		a.inflight[key]--
	}
	a.inflightMu.Unlock()
}

func (a *Analyzer) isInflight(key string) bool {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	return a.inflight[key] > 0
}

func (a *Analyzer) recordHit() {
	if a.stats != nil {
		a.stats.RecordCacheHit()
	}
}

func (a *Analyzer) recordMiss() {
	if a.stats != nil {
		a.stats.RecordCacheMiss()
	}
}

// CacheStats returns statistics about the analysis cache.
func (a *Analyzer) CacheStats(ctx context.Context) CacheStats {
	return a.cache.Stats(ctx)
}
