package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyzeResponse = `{"result":{
	"websiteUrl":"https://example.com",
	"scores":{"overall":76,"performance":42,"seo":90,"accessibility":80,"bestPractices":70},
	"audits":{
		"performance":[{"id":"speed-index","title":"Speed Index","score":0.3,"impact":"high","category":"performance","current_value":"5.1 s"}],
		"seo":[],"accessibility":[],"bestPractices":[]
	}
}}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/analyze":
			fmt.Fprint(w, analyzeResponse)
		case "/api/ai-solution":
			fmt.Fprint(w, `{"content":"Compress and lazy-load images.","success":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_AnalyzeIssuesFix(t *testing.T) {
	srv := newServer(t)
	store := filepath.Join(t.TempDir(), "store.json")
	flags := []string{"-server", srv.URL, "-store", store}
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, append(flags, "analyze", "example.com"), &out))
	assert.Contains(t, out.String(), "https://example.com")
	assert.Contains(t, out.String(), "overall         76")

	out.Reset()
	require.NoError(t, run(ctx, append(flags, "issues", "performance"), &out))
	assert.Contains(t, out.String(), " 1. [high  ] Speed Index (current: 5.1 s)")

	out.Reset()
	require.NoError(t, run(ctx, append(flags, "fix", "performance", "1"), &out))
	assert.Contains(t, out.String(), "Compress and lazy-load images.")

	assert.Error(t, run(ctx, append(flags, "fix", "performance", "2"), &out))
}

func TestRun_Errors(t *testing.T) {
	store := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	tests := [][]string{
		{},
		{"bogus"},
		{"analyze"},
		{"issues", "performance"},
		{"fix", "performance", "zero"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		err := run(ctx, append([]string{"-store", store}, args...), &out)
		assert.Error(t, err, "%v", args)
	}
}
