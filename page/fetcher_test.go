package page

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html><html><head>
<title>  Example Domain </title>
<meta name="description" content="An example page used in tests.">
</head><body><h1>Hello</h1></body></html>`

func TestFetcher_Snapshot(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = fmt.Fprint(w, samplePage)
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client())
	snap, err := f.Snapshot(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, "Example Domain", snap.Title)
	assert.Equal(t, "An example page used in tests.", snap.Description)
	assert.Equal(t, http.StatusOK, snap.StatusCode)
	assert.Equal(t, len(samplePage), snap.Size)
	assert.Equal(t, hashBody([]byte(samplePage)), snap.Hash)
	assert.Len(t, snap.Hash, 32, "md5 hex digest")
}

func TestFetcher_HashChangesWithContent(t *testing.T) {
	body := "version one"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, body)
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client())

	first, err := f.Hash(context.Background(), ts.URL)
	require.NoError(t, err)
	again, err := f.Hash(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, first, again, "unchanged content hashes identically")

	body = "version two"
	changed, err := f.Hash(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestFetcher_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client())
	snap, err := f.Snapshot(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBadStatus))
	assert.Equal(t, http.StatusServiceUnavailable, snap.StatusCode)
}

func TestFetcher_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, samplePage)
	}))
	defer ts.Close()

	_, err := NewFetcher().Hash(context.Background(), ts.URL)
	require.Error(t, err)

	assert.ErrorIs(t, blockPrivateAddresses("tcp", "127.0.0.1:80", nil), errBlockedAddress)
	assert.NoError(t, blockPrivateAddresses("tcp", "93.184.216.34:443", nil))
}

func TestSafeRedirectPolicy(t *testing.T) {
	req := &http.Request{URL: &url.URL{Scheme: "ftp", Host: "example.com"}}
	assert.ErrorIs(t, safeRedirectPolicy(req, nil), errBlockedRedirect)

	req.URL.Scheme = "https"
	assert.NoError(t, safeRedirectPolicy(req, nil))

	via := make([]*http.Request, maxRedirects)
	assert.ErrorIs(t, safeRedirectPolicy(req, via), errTooManyRedirects)
}

func TestIsBlockedIP(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"::ffff:127.0.0.1", true},
		{"100.64.0.1", true},
		{"203.0.113.5", true},
		{"93.184.216.34", false},
		{"2606:2800:220:1:248:1893:25c8:1946", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, isBlockedIP(netip.MustParseAddr(tt.addr)))
		})
	}
}
