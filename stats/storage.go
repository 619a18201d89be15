package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MonthlyStats represents statistics for a specific month
type MonthlyStats struct {
	AnalysisCacheHits    int       `json:"analysis_hits"`
	AnalysisCacheMisses  int       `json:"analysis_misses"`
	RemediationSuccesses int       `json:"remediation_successes"`
	RemediationFailures  int       `json:"remediation_failures"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	saveMu      sync.Mutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	logger      *slog.Logger
	now         func() time.Time
}

// NewStorage creates a new statistics storage instance backed by
// dataDir/stats.json.
func NewStorage(dataDir string, logger *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		logger:      logger,
		now:         time.Now,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

// load reads statistics from file
func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// save writes statistics to file
func (s *Storage) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to temporary file first
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// backgroundWriter handles periodic writes to disk
func (s *Storage) backgroundWriter() {
	defer close(s.stopped)
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.persist()
		case <-ticker.C:
			s.persist()
		case <-s.done:
			s.persist()
			return
		}
	}
}

func (s *Storage) persist() {
	if err := s.save(); err != nil {
		s.logger.Error("failed to persist statistics", "path", s.filePath, "error", err)
	}
}

// Close stops the background writer and returns once the final save has
// finished.
func (s *Storage) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped
}

// currentMonth returns the current month key in YYYY-MM format
func (s *Storage) currentMonth() string {
	return s.now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// write already pending
	}
}

// IncrementStats increments the specified statistics
func (s *Storage) IncrementStats(analysisHits, analysisMisses, remediationOK, remediationFailed int) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}

	stats.AnalysisCacheHits += analysisHits
	stats.AnalysisCacheMisses += analysisMisses
	stats.RemediationSuccesses += remediationOK
	stats.RemediationFailures += remediationFailed
	stats.LastUpdated = s.now()

	// Request a write if enough time has passed
	if s.now().Sub(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// RecordCacheHit counts an analysis served from the cache.
func (s *Storage) RecordCacheHit() { s.IncrementStats(1, 0, 0, 0) }

// RecordCacheMiss counts an analysis that went upstream.
func (s *Storage) RecordCacheMiss() { s.IncrementStats(0, 1, 0, 0) }

// RecordRemediation counts a remediation request by outcome.
func (s *Storage) RecordRemediation(success bool) {
	if success {
		s.IncrementStats(0, 0, 1, 0)
		return
	}
	s.IncrementStats(0, 0, 0, 1)
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	month := s.currentMonth()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[month]; exists {
		return *stats
	}
	return MonthlyStats{}
}

// Cleanup removes statistics older than retainMonths, counting the
// current month.
func (s *Storage) Cleanup(retainMonths int) {
	if retainMonths < 1 {
		retainMonths = 1
	}
	keep := make(map[string]bool, retainMonths)
	now := s.now()
	for i := 0; i < retainMonths; i++ {
		keep[now.AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	removed := 0
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	s.logger.Debug("statistics cleanup", "retain_months", retainMonths, "removed", removed)
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns all months that have statistics, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}
