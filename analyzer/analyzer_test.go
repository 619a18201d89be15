package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/insights/errs"
	"github.com/seo-optimizer/insights/page"
	"github.com/seo-optimizer/insights/pagespeed"
)

// mockProvider implements AuditProvider for testing.
type mockProvider struct {
	result  *pagespeed.LighthouseResult
	err     error
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (m *mockProvider) Run(ctx context.Context, _ string) (*pagespeed.LighthouseResult, error) {
	m.calls.Add(1)
	if m.started != nil {
		select {
		case m.started <- struct{}{}:
		default:
		}
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.result, m.err
}

type mockSnapshotter struct {
	snap page.Snapshot
	err  error
}

func (m *mockSnapshotter) Snapshot(_ context.Context, _ string) (page.Snapshot, error) {
	return m.snap, m.err
}

type mockRecorder struct {
	mu    sync.Mutex
	saved []*AnalysisResult
	err   error
}

func (m *mockRecorder) Save(_ context.Context, r *AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return m.err
}

type countingStats struct {
	hits, misses atomic.Int32
}

func (c *countingStats) RecordCacheHit()  { c.hits.Add(1) }
func (c *countingStats) RecordCacheMiss() { c.misses.Add(1) }

func speedIndexResult() *pagespeed.LighthouseResult {
	return &pagespeed.LighthouseResult{
		Categories: map[string]pagespeed.Category{
			pagespeed.CategoryPerformance: {ID: "performance", Score: score(0.42)},
		},
		Audits: map[string]pagespeed.Audit{
			"speed-index": {
				ID:           "speed-index",
				Title:        "Speed Index",
				Description:  "Speed Index shows how quickly the contents of a page are visibly populated.",
				Score:        score(0.3),
				DisplayValue: "5.1 s",
			},
		},
	}
}

func newTestAnalyzer(t *testing.T, provider AuditProvider, hasher Hasher, opts ...Option) (*Analyzer, *fakeClock) {
	t.Helper()
	cache, clock := newTestCache(t, hasher, 100)
	a := New(provider, cache, slog.Default(), opts...)
	a.now = clock.Now
	return a, clock
}

func TestAnalyzer_Analyze_SpeedIndexScenario(t *testing.T) {
	provider := &mockProvider{result: speedIndexResult()}
	a, _ := newTestAnalyzer(t, provider, newFakeHasher())

	result, err := a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", result.WebsiteURL)
	assert.Equal(t, 42, result.Scores.Performance)
	require.Len(t, result.Audits.Performance, 1)
	issue := result.Audits.Performance[0]
	assert.Equal(t, ImpactHigh, issue.Impact)
	assert.Equal(t, "5.1 s", issue.CurrentValue)
}

func TestAnalyzer_Analyze_MissingDisplayValue(t *testing.T) {
	lr := speedIndexResult()
	audit := lr.Audits["speed-index"]
	audit.DisplayValue = ""
	lr.Audits["speed-index"] = audit

	a, _ := newTestAnalyzer(t, &mockProvider{result: lr}, newFakeHasher())

	result, err := a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "N/A", result.Audits.Performance[0].CurrentValue)
}

func TestAnalyzer_Analyze_CachesResult(t *testing.T) {
	provider := &mockProvider{result: speedIndexResult()}
	stats := &countingStats{}
	recorder := &mockRecorder{}
	a, _ := newTestAnalyzer(t, provider, newFakeHasher(), WithStats(stats), WithHistory(recorder))

	first, err := a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "  EXAMPLE.com ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, int32(1), stats.hits.Load())
	assert.Equal(t, int32(1), stats.misses.Load())
	assert.Len(t, recorder.saved, 1, "only fresh reports are recorded")
}

func TestAnalyzer_Analyze_RefetchesAfterContentChange(t *testing.T) {
	provider := &mockProvider{result: speedIndexResult()}
	hasher := newFakeHasher()
	a, _ := newTestAnalyzer(t, provider, hasher)

	hasher.set("https://example.com", "before")
	_, err := a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)

	hasher.set("https://example.com", "after")
	_, err = a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestAnalyzer_Analyze_InvalidURL(t *testing.T) {
	provider := &mockProvider{result: speedIndexResult()}
	a, _ := newTestAnalyzer(t, provider, newFakeHasher())

	_, err := a.Analyze(context.Background(), "")

	var appErr *errs.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errs.InvalidInput, appErr.Kind)
	assert.Equal(t, "Website URL is required", appErr.Message)
	assert.Zero(t, provider.calls.Load())
}

func TestAnalyzer_Analyze_UpstreamFailureNotCached(t *testing.T) {
	provider := &mockProvider{err: &errs.AppError{Kind: errs.UpstreamFailure, UpstreamStatus: 500, Message: "Failed to analyze website"}}
	recorder := &mockRecorder{}
	a, _ := newTestAnalyzer(t, provider, newFakeHasher(), WithHistory(recorder))

	_, err := a.Analyze(context.Background(), "example.com")
	require.Error(t, err)

	status, err := a.Status(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status.Status)
	assert.Empty(t, recorder.saved)
}

func TestAnalyzer_Analyze_PageSnapshot(t *testing.T) {
	snap := &mockSnapshotter{snap: page.Snapshot{Title: "Example Domain", Description: "Example"}}
	a, _ := newTestAnalyzer(t, &mockProvider{result: speedIndexResult()}, newFakeHasher(), WithPageSnapshots(snap))

	result, err := a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, result.Page)
	assert.Equal(t, "Example Domain", result.Page.Title)
}

func TestAnalyzer_Analyze_PageSnapshotFailureIgnored(t *testing.T) {
	snap := &mockSnapshotter{err: errors.New("timeout")}
	a, _ := newTestAnalyzer(t, &mockProvider{result: speedIndexResult()}, newFakeHasher(), WithPageSnapshots(snap))

	result, err := a.Analyze(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Nil(t, result.Page)
}

func TestAnalyzer_Analyze_RecorderFailureIgnored(t *testing.T) {
	recorder := &mockRecorder{err: errors.New("disk full")}
	a, _ := newTestAnalyzer(t, &mockProvider{result: speedIndexResult()}, newFakeHasher(), WithHistory(recorder))

	_, err := a.Analyze(context.Background(), "example.com")
	assert.NoError(t, err)
}

func TestAnalyzer_ConcurrentMissesShareUpstreamRun(t *testing.T) {
	provider := &mockProvider{
		result:  speedIndexResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	a, _ := newTestAnalyzer(t, provider, newFakeHasher())

	const concurrency = 5
	var wg sync.WaitGroup
	results := make([]*AnalysisResult, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := a.Analyze(context.Background(), "example.com")
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}

	<-provider.started
	time.Sleep(50 * time.Millisecond) // let the other callers join the in-flight run
	close(provider.release)
	wg.Wait()

	assert.Equal(t, int32(1), provider.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestAnalyzer_UpstreamRunSurvivesCallerCancellation(t *testing.T) {
	provider := &mockProvider{
		result:  speedIndexResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	a, _ := newTestAnalyzer(t, provider, newFakeHasher())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(ctx, "example.com")
		done <- err
	}()

	<-provider.started
	cancel()
	close(provider.release)
	require.NoError(t, <-done)

	status, err := a.Status(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, status.Status)
}

func TestAnalyzer_Status(t *testing.T) {
	provider := &mockProvider{
		result:  speedIndexResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	a, clock := newTestAnalyzer(t, provider, newFakeHasher(), WithPollInterval(5*time.Second))
	ctx := context.Background()

	status, err := a.Status(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status.Status)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Analyze(ctx, "example.com")
	}()
	<-provider.started

	status, err = a.Status(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)
	assert.Equal(t, clock.Now().Add(5*time.Second).UnixMilli(), status.NextCheck)

	close(provider.release)
	<-done

	status, err = a.Status(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, status.Status)
	require.NotNil(t, status.Result)
	require.NotNil(t, status.Overall)
	assert.Equal(t, AverageOverall(0.42, 0, 0, 0), *status.Overall)

	clock.Advance(time.Hour)
	status, err = a.Status(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, status.Status)

	status, err = a.Status(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status.Status)
}

func TestAnalyzer_Status_InvalidURL(t *testing.T) {
	a, _ := newTestAnalyzer(t, &mockProvider{}, newFakeHasher())

	status, err := a.Status(context.Background(), "ftp://example.com")
	require.Error(t, err)
	assert.Equal(t, StatusError, status.Status)
}
