package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/", "https://example.com"},
		{"https://example.com/blog/?page=2", "https://example.com/blog"},
		{"http://localhost:8082/", ""},
		{"http://127.0.0.1/x", ""},
		{"https://example.com/api/analyze", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanURL(tt.in))
		})
	}
}

func TestStatistics_TrackAnalysis(t *testing.T) {
	s, err := NewStatistics(t.TempDir(), true)
	require.NoError(t, err)

	s.TrackAnalysis("https://example.com", 100, false)
	s.TrackAnalysis("https://example.com/", 300, true)
	s.TrackAnalysis("https://other.org", 200, false)

	assert.Equal(t, 3, s.TotalRequests())
	assert.InDelta(t, 33.33, s.GetErrorRate(), 0.01)
	assert.InDelta(t, 200, s.AverageLoadTime, 0.001)
	assert.Equal(t, map[string]int{"https://example.com": 2}, s.GetPopularURLs(1))
}

func TestStatistics_UniqueVisitors(t *testing.T) {
	s, err := NewStatistics(t.TempDir(), false)
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.TrackVisitor("10.0.0.1")
	s.TrackVisitor("10.0.0.2")
	s.UniqueVisitors["10.0.0.3"] = now.Add(-48 * time.Hour)

	assert.Equal(t, 2, s.GetUniqueVisitorsCount())
}

func TestStatistics_SnapshotHidesURLsUnlessDetailed(t *testing.T) {
	plain, err := NewStatistics(t.TempDir(), false)
	require.NoError(t, err)
	plain.TrackAnalysis("https://example.com", 10, false)
	assert.NotContains(t, plain.Snapshot(), "popularUrls")

	detailed, err := NewStatistics(t.TempDir(), true)
	require.NoError(t, err)
	detailed.TrackAnalysis("https://example.com", 10, false)
	assert.Contains(t, detailed.Snapshot(), "popularUrls")
}

func TestStatistics_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStatistics(dir, false)
	require.NoError(t, err)
	s.TrackAnalysis("https://example.com", 50, false)
	s.TrackVisitor("10.0.0.1")
	require.NoError(t, s.Save())

	reloaded, err := NewStatistics(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalRequests())
	assert.Equal(t, 1, reloaded.PopularURLs["https://example.com"])
	assert.InDelta(t, 50, reloaded.AverageLoadTime, 0.001)
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "WARN")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Contains(t, entry, "source")
}
