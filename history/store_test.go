package history

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/insights/analyzer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func report(url string, overall int, at time.Time) *analyzer.AnalysisResult {
	return &analyzer.AnalysisResult{
		WebsiteURL: url,
		Timestamp:  at,
		Scores:     analyzer.Scores{Overall: overall, Performance: 42, SEO: 90},
		Audits: analyzer.Audits{
			Performance: []analyzer.Issue{{ID: "speed-index", Title: "Speed Index", Impact: analyzer.ImpactHigh}},
			SEO:         []analyzer.Issue{{ID: "meta-description", Title: "Meta description"}},
		},
	}
}

func TestStore_SaveAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, report("https://a.example", 70, base)))
	require.NoError(t, s.Save(ctx, report("https://b.example", 80, base.Add(time.Minute))))
	require.NoError(t, s.Save(ctx, report("https://c.example", 90, base.Add(2*time.Minute))))

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "https://c.example", recent[0].WebsiteURL)
	assert.Equal(t, "https://b.example", recent[1].WebsiteURL)
	assert.Equal(t, 90, recent[0].Overall)
	assert.Equal(t, 2, recent[0].IssueCount)
	assert.Equal(t, base.Add(2*time.Minute), recent[0].AnalyzedAt)
	assert.NotEmpty(t, recent[0].ID)
}

func TestStore_Latest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, report("https://a.example", 60, base)))
	require.NoError(t, s.Save(ctx, report("https://a.example", 75, base.Add(time.Hour))))

	latest, err := s.Latest(ctx, "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, 75, latest.Scores.Overall)
	require.Len(t, latest.Audits.Performance, 1)
	assert.Equal(t, "speed-index", latest.Audits.Performance[0].ID)

	_, err = s.Latest(ctx, "https://missing.example")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LatestIgnoresCase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, report("https://Example.com", 60, base)))
	require.NoError(t, s.Save(ctx, report("https://example.com", 80, base.Add(time.Hour))))

	for _, url := range []string{"https://example.com", "https://EXAMPLE.com", "Example.com"} {
		latest, err := s.Latest(ctx, url)
		require.NoError(t, err, url)
		assert.Equal(t, 80, latest.Scores.Overall, url)
	}
}

func TestOpen_MigratesURLKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE reports (
		id TEXT PRIMARY KEY, website_url TEXT NOT NULL, overall INTEGER NOT NULL,
		performance INTEGER NOT NULL, seo INTEGER NOT NULL, accessibility INTEGER NOT NULL,
		best_practices INTEGER NOT NULL, issue_count INTEGER NOT NULL, note TEXT,
		result_json TEXT NOT NULL, analyzed_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO reports VALUES ('r1', 'https://Old.example', 70, 0, 0, 0, 0, 0, NULL, '{"websiteUrl":"https://Old.example","scores":{"overall":70}}', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	latest, err := s.Latest(context.Background(), "https://old.example")
	require.NoError(t, err)
	assert.Equal(t, 70, latest.Scores.Overall)
}

func TestFeed_RSS(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := report("https://a.example", 76, at)
	r.Note = "Detailed analysis incomplete: timeout"
	require.NoError(t, s.Save(ctx, r))

	feed := NewFeed(s, "https://seo.example/")
	rss, err := feed.RSS(ctx, 10)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rss, "<?xml"))
	assert.Contains(t, rss, "<rss")
	assert.Contains(t, rss, "https://a.example scored 76")
	assert.Contains(t, rss, "https://seo.example/api/reports?url=https%3A%2F%2Fa.example")
	assert.Contains(t, rss, "Detailed analysis incomplete")
}

func TestFeed_RSSEmpty(t *testing.T) {
	feed := NewFeed(openTestStore(t), "https://seo.example")

	rss, err := feed.RSS(context.Background(), 10)
	require.NoError(t, err)
	assert.Contains(t, rss, "<channel>")
	assert.NotContains(t, rss, "<item>")
}
