package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/seo-optimizer/insights/analyzer"
)

// ErrNotFound is returned when no report exists for a URL.
var ErrNotFound = errors.New("report not found")

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	website_url TEXT NOT NULL,
	url_key TEXT NOT NULL DEFAULT '',
	overall INTEGER NOT NULL,
	performance INTEGER NOT NULL,
	seo INTEGER NOT NULL,
	accessibility INTEGER NOT NULL,
	best_practices INTEGER NOT NULL,
	issue_count INTEGER NOT NULL,
	note TEXT,
	result_json TEXT NOT NULL,
	analyzed_at INTEGER NOT NULL -- unix milliseconds
);
CREATE INDEX IF NOT EXISTS idx_reports_analyzed ON reports(analyzed_at);`

const urlKeyIndex = `CREATE INDEX IF NOT EXISTS idx_reports_url_key ON reports(url_key, analyzed_at);`

// Report is the summary row of a stored analysis.
type Report struct {
	ID            string    `json:"id"`
	WebsiteURL    string    `json:"websiteUrl"`
	Overall       int       `json:"overall"`
	Performance   int       `json:"performance"`
	SEO           int       `json:"seo"`
	Accessibility int       `json:"accessibility"`
	BestPractices int       `json:"bestPractices"`
	IssueCount    int       `json:"issueCount"`
	Note          string    `json:"note,omitempty"`
	AnalyzedAt    time.Time `json:"analyzedAt"`
}

// Store keeps completed reports in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the report database at path. Use
// ":memory:" for a throwaway database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reports table: %w", err)
	}
	if err := migrateURLKey(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("history database initialized", "path", path)

	return &Store{db: db, logger: logger}, nil
}

// migrateURLKey adds the url_key column to databases created before it
// existed and backfills it from website_url.
func migrateURLKey(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('reports')`)
	if err != nil {
		return fmt.Errorf("failed to inspect reports table: %w", err)
	}
	hasKey := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to inspect reports table: %w", err)
		}
		if name == "url_key" {
			hasKey = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect reports table: %w", err)
	}

	if !hasKey {
		if _, err := db.Exec(`ALTER TABLE reports ADD COLUMN url_key TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add url_key column: %w", err)
		}
	}
	if _, err := db.Exec(`UPDATE reports SET url_key = lower(website_url) WHERE url_key = ''`); err != nil {
		return fmt.Errorf("failed to backfill url_key: %w", err)
	}
	if _, err := db.Exec(urlKeyIndex); err != nil {
		return fmt.Errorf("failed to create url_key index: %w", err)
	}
	return nil
}

// keyFor returns the lookup key for a website URL, matching the analysis
// cache key so differently cased spellings share one history.
func keyFor(websiteURL string) string {
	if target, err := analyzer.NormalizeURL(websiteURL); err == nil {
		return target.Key
	}
	return strings.ToLower(strings.TrimSpace(websiteURL))
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records result as a new report.
func (s *Store) Save(ctx context.Context, result *analyzer.AnalysisResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	a := result.Audits
	issues := len(a.Performance) + len(a.SEO) + len(a.Accessibility) + len(a.BestPractices)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, website_url, url_key, overall, performance, seo, accessibility, best_practices, issue_count, note, result_json, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), result.WebsiteURL, keyFor(result.WebsiteURL),
		result.Scores.Overall, result.Scores.Performance, result.Scores.SEO,
		result.Scores.Accessibility, result.Scores.BestPractices,
		issues, result.Note, string(body), result.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// Recent returns up to limit report summaries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, website_url, overall, performance, seo, accessibility, best_practices, issue_count, COALESCE(note, ''), analyzed_at
		FROM reports
		ORDER BY analyzed_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]Report, 0, limit)
	for rows.Next() {
		var (
			r  Report
			ms int64
		)
		if err := rows.Scan(&r.ID, &r.WebsiteURL, &r.Overall, &r.Performance, &r.SEO,
			&r.Accessibility, &r.BestPractices, &r.IssueCount, &r.Note, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.AnalyzedAt = time.UnixMilli(ms).UTC()
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	return reports, nil
}

// Latest returns the most recent full report for websiteURL, matched the
// same way the analysis cache matches URLs.
func (s *Store) Latest(ctx context.Context, websiteURL string) (*analyzer.AnalysisResult, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT result_json FROM reports
		WHERE url_key = ?
		ORDER BY analyzed_at DESC, rowid DESC
		LIMIT 1`, keyFor(websiteURL)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	var result analyzer.AnalysisResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &result, nil
}
