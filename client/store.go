package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/seo-optimizer/insights/analyzer"
)

// AuditsKey is the key under which the last report's audits are kept.
const AuditsKey = "seoAnalysisAudits"

// WebsiteKey holds the website of the last report.
const WebsiteKey = "seoAnalysisWebsite"

// ErrNoReport is returned when no report has been stored yet.
var ErrNoReport = errors.New("no stored report; run an analysis first")

// Store is a small JSON key-value file holding the last report for
// display. It is not authoritative.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStorePath is the store location under the user's config directory.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "seoctl", "store.json"), nil
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return values, nil
}

func (s *Store) write(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

// SaveReport keeps the audits and website of result, replacing the
// previous report.
func (s *Store) SaveReport(result *analyzer.AnalysisResult) error {
	audits, err := json.Marshal(result.Audits)
	if err != nil {
		return fmt.Errorf("encode audits: %w", err)
	}
	website, err := json.Marshal(result.WebsiteURL)
	if err != nil {
		return fmt.Errorf("encode website: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[AuditsKey] = audits
	values[WebsiteKey] = website
	return s.write(values)
}

// Audits returns the stored audits.
func (s *Store) Audits() (analyzer.Audits, error) {
	s.mu.Lock()
	values, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return analyzer.Audits{}, err
	}

	raw, ok := values[AuditsKey]
	if !ok {
		return analyzer.Audits{}, ErrNoReport
	}
	var audits analyzer.Audits
	if err := json.Unmarshal(raw, &audits); err != nil {
		return analyzer.Audits{}, fmt.Errorf("decode audits: %w", err)
	}
	return audits, nil
}

// Website returns the website of the stored report.
func (s *Store) Website() (string, error) {
	s.mu.Lock()
	values, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	raw, ok := values[WebsiteKey]
	if !ok {
		return "", ErrNoReport
	}
	var website string
	if err := json.Unmarshal(raw, &website); err != nil {
		return "", fmt.Errorf("decode website: %w", err)
	}
	return website, nil
}

// Category returns the stored issues of one category ("performance",
// "seo", "accessibility", "bestPractices" or "technical").
func (s *Store) Category(name string) ([]analyzer.Issue, error) {
	audits, err := s.Audits()
	if err != nil {
		return nil, err
	}
	issues, ok := audits.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", name)
	}
	return issues, nil
}
