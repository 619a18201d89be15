package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Statistics tracks visitors and analysis requests for the statistics
// endpoint. It is persisted as JSON under the data directory.
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"` // IP -> last visit
	AnalysisRequests int                  `json:"analysisRequests"`
	ErrorCount       int                  `json:"errorCount"`
	PopularURLs      map[string]int       `json:"popularUrls"`
	AverageLoadTime  float64              `json:"averageLoadTime"` // milliseconds
	TotalLoadTime    float64              `json:"totalLoadTime"`
	RequestCount     int                  `json:"requestCount"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	mutex    sync.RWMutex
	filePath string
	detailed bool
	now      func() time.Time
}

// NewStatistics creates statistics persisted to dataDir/statistics.json,
// loading any previous state. When detailed is false the snapshot omits
// popular URLs.
func NewStatistics(dataDir string, detailed bool) (*Statistics, error) {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularURLs:    make(map[string]int),
		filePath:       filepath.Join(dataDir, "statistics.json"),
		detailed:       detailed,
		now:            time.Now,
	}
	if err := s.Load(); err != nil {
		return s, err
	}
	return s, nil
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = s.now()
}

// cleanURL reduces a URL to scheme, host and path. Local and API URLs
// return "".
func cleanURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	cleaned := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}

	return strings.TrimSuffix(cleaned, "/")
}

// TrackAnalysis records an analysis request for websiteURL.
func (s *Statistics) TrackAnalysis(websiteURL string, loadTime float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++

	if cleaned := cleanURL(websiteURL); cleaned != "" {
		s.PopularURLs[cleaned]++
	}

	if hasError {
		s.ErrorCount++
	}

	s.TotalLoadTime += loadTime
	s.RequestCount++
	s.AverageLoadTime = s.TotalLoadTime / float64(s.RequestCount)
}

// TotalRequests returns the number of analysis requests seen.
func (s *Statistics) TotalRequests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests
}

func (s *Statistics) uniqueVisitorsLocked() int {
	count := 0
	cutoff := s.now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// GetUniqueVisitorsCount returns the number of unique visitors in the last 24 hours
func (s *Statistics) GetUniqueVisitorsCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.uniqueVisitorsLocked()
}

func (s *Statistics) popularURLsLocked(n int) map[string]int {
	urls := make([]string, 0, len(s.PopularURLs))
	for u := range s.PopularURLs {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		if s.PopularURLs[urls[i]] != s.PopularURLs[urls[j]] {
			return s.PopularURLs[urls[i]] > s.PopularURLs[urls[j]]
		}
		return urls[i] < urls[j]
	})
	if len(urls) > n {
		urls = urls[:n]
	}

	result := make(map[string]int, len(urls))
	for _, u := range urls {
		result[u] = s.PopularURLs[u]
	}
	return result
}

// GetPopularURLs returns the top N most analyzed URLs
func (s *Statistics) GetPopularURLs(n int) map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.popularURLsLocked(n)
}

func (s *Statistics) errorRateLocked() float64 {
	if s.AnalysisRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.AnalysisRequests) * 100
}

// GetErrorRate returns the error rate as a percentage
func (s *Statistics) GetErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRateLocked()
}

// Save persists the statistics to disk.
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = s.now()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("could not create statistics directory: %w", err)
	}

	file, err := os.Create(s.filePath)
	if err != nil {
		return fmt.Errorf("could not create statistics file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}

	return nil
}

// Load reads the statistics from disk. A missing file is not an error.
func (s *Statistics) Load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.NewDecoder(file).Decode(s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularURLs == nil {
		s.PopularURLs = make(map[string]int)
	}

	return nil
}

// Snapshot returns the statistics shown by the statistics endpoint.
func (s *Statistics) Snapshot() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]any{
		"uniqueVisitors24h": s.uniqueVisitorsLocked(),
		"totalRequests":     s.AnalysisRequests,
		"errorRate":         s.errorRateLocked(),
		"averageLoadTime":   s.AverageLoadTime,
	}
	if s.detailed {
		out["popularUrls"] = s.popularURLsLocked(5)
	}
	return out
}
