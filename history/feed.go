package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"
)

// Feed renders recent reports as an RSS 2.0 document.
type Feed struct {
	store   *Store
	baseURL string
	now     func() time.Time
}

// NewFeed returns a Feed over store. baseURL is the public address of the
// service, used for item links.
func NewFeed(store *Store, baseURL string) *Feed {
	return &Feed{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// RSS returns the feed for the limit most recent reports.
func (f *Feed) RSS(ctx context.Context, limit int) (string, error) {
	reports, err := f.store.Recent(ctx, limit)
	if err != nil {
		return "", err
	}

	now := f.now()
	feed := &feeds.Feed{
		Title:       "SEO analysis reports",
		Description: "Recently analyzed websites with their PageSpeed scores",
		Link:        &feeds.Link{Href: f.baseURL + "/", Rel: "self", Type: "text/html"},
		Created:     now,
		Updated:     now,
	}
	if len(reports) > 0 {
		feed.Updated = reports[0].AnalyzedAt
	}

	for _, r := range reports {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       fmt.Sprintf("%s scored %d", r.WebsiteURL, r.Overall),
			Link:        &feeds.Link{Href: f.itemLink(r)},
			Id:          r.ID,
			Description: describe(r),
			Created:     r.AnalyzedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render feed: %w", err)
	}
	return rss, nil
}

func (f *Feed) itemLink(r Report) string {
	return f.baseURL + "/api/reports?url=" + url.QueryEscape(r.WebsiteURL)
}

func describe(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Performance %d, SEO %d, Accessibility %d, Best practices %d. ",
		r.Performance, r.SEO, r.Accessibility, r.BestPractices)
	fmt.Fprintf(&b, "%d issues found.", r.IssueCount)
	if r.Note != "" {
		b.WriteString(" " + r.Note)
	}
	return b.String()
}
