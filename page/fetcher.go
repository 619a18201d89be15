package page

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20 // 10 MB
	userAgent       = "SEOAnalyzer/1.0"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
	errBadStatus        = errors.New("page returned an error status")
)

// Snapshot is what a single fetch of the live page yields.
type Snapshot struct {
	Hash        string
	Title       string
	Description string
	StatusCode  int
	Size        int
}

// Fetcher retrieves live pages for change detection.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with a 15s timeout, a dialer that refuses
// private and reserved addresses, and a bounded redirect chain.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         safeDialer().DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: safeRedirectPolicy,
		},
	}
}

// NewFetcherWithClient returns a Fetcher using hc as is.
func NewFetcherWithClient(hc *http.Client) *Fetcher {
	return &Fetcher{client: hc}
}

func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Hash fetches the page and returns the MD5 digest of its body. MD5 is used
// for change detection only.
func (f *Fetcher) Hash(ctx context.Context, targetURL string) (string, error) {
	body, _, err := f.fetch(ctx, targetURL)
	if err != nil {
		return "", err
	}
	return hashBody(body), nil
}

// Snapshot fetches the page once and returns its hash and basic metadata.
func (f *Fetcher) Snapshot(ctx context.Context, targetURL string) (Snapshot, error) {
	body, status, err := f.fetch(ctx, targetURL)
	if err != nil {
		return Snapshot{StatusCode: status}, err
	}

	snap := Snapshot{
		Hash:       hashBody(body),
		StatusCode: status,
		Size:       len(body),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// Metadata is optional; the hash is still valid.
		return snap, nil
	}
	snap.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find("meta[name='description']").First().Attr("content"); ok {
		snap.Description = strings.TrimSpace(desc)
	}
	return snap, nil
}

func (f *Fetcher) fetch(ctx context.Context, targetURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("%w: %d", errBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func hashBody(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}
