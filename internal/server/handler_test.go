package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsearch-io/docsearch/internal/builder"
	"github.com/docsearch-io/docsearch/internal/engine"
	"github.com/docsearch-io/docsearch/internal/source"
)

type sliceSource struct {
	docs []source.RawDocument
}

func (s *sliceSource) Documents(ctx context.Context) ([]source.RawDocument, error) {
	return s.docs, nil
}

// newTestServer builds a handler over a small fixed corpus and mounts it on
// the same route patterns the service uses, so PathValue resolution works.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	src := &sliceSource{docs: []source.RawDocument{
		{Title: "a.txt", Path: "data/a.txt", Content: "the cat sat"},
		{Title: "b.txt", Path: "data/b.txt", Content: "the cat ran"},
		{Title: "c.txt", Path: "data/c.txt", Content: "dogs bark loudly"},
	}}
	snap, err := builder.New(2).Build(context.Background(), src)
	require.NoError(t, err)

	h := New(engine.New(snap), nil, nil, nil, 10, 100, 10)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body SearchResponse
	status := getJSON(t, srv.URL+"/api/v1/search?q=cat", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cat", body.Query)
	assert.Equal(t, string(engine.QueryBoolean), body.Kind)
	assert.Equal(t, 2, body.TotalHits)
	require.Len(t, body.Results, 2)
	assert.Equal(t, 1, body.Results[0].DocID)
	assert.Equal(t, "a.txt", body.Results[0].Title)
}

func TestSearchEndpointPhrase(t *testing.T) {
	srv := newTestServer(t)

	var body SearchResponse
	status := getJSON(t, srv.URL+`/api/v1/search?q=`+`%22cat+sat%22`, &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(engine.QueryPhrase), body.Kind)
	require.Len(t, body.Results, 1)
	assert.Equal(t, 1, body.Results[0].DocID)
}

func TestSearchEndpointLimit(t *testing.T) {
	srv := newTestServer(t)

	var body SearchResponse
	status := getJSON(t, srv.URL+"/api/v1/search?q=cat&limit=1", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.TotalHits, "total hits counts all matches before truncation")
	assert.Len(t, body.Results, 1)
}

func TestSearchEndpointZeroResults(t *testing.T) {
	srv := newTestServer(t)

	var body SearchResponse
	status := getJSON(t, srv.URL+"/api/v1/search?q=zebra", &body)

	assert.Equal(t, http.StatusOK, status, "an empty result set is a normal response")
	assert.Equal(t, 0, body.TotalHits)
	assert.Empty(t, body.Results)
}

func TestSearchEndpointBadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "missing query", path: "/api/v1/search"},
		{name: "non-numeric limit", path: "/api/v1/search?q=cat&limit=abc"},
		{name: "zero limit", path: "/api/v1/search?q=cat&limit=0"},
		{name: "negative limit", path: "/api/v1/search?q=cat&limit=-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			status := getJSON(t, srv.URL+tt.path, &body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body["error"], "invalid input:",
				"clients see the message, not the internal taxonomy")
		})
	}
}

func TestSuggestEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body SuggestResponse
	status := getJSON(t, srv.URL+"/api/v1/suggest?prefix=ca", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ca", body.Prefix)
	assert.Equal(t, []string{"cat"}, body.Suggestions)
}

func TestSuggestEndpointEmptyPrefix(t *testing.T) {
	srv := newTestServer(t)

	var body SuggestResponse
	status := getJSON(t, srv.URL+"/api/v1/suggest", &body)

	assert.Equal(t, http.StatusOK, status, "a missing prefix is not an error")
	assert.Empty(t, body.Suggestions)
}

func TestDocumentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body DocumentResponse
	status := getJSON(t, srv.URL+"/api/v1/documents/1", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.DocID)
	assert.Equal(t, "a.txt", body.Title)
	assert.Equal(t, "data/a.txt", body.Path)
	assert.Equal(t, 2, body.ContentLength)
}

func TestDocumentEndpointNotFound(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/v1/documents/99", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "document 99 not found", body["error"])
}

func TestDocumentEndpointBadID(t *testing.T) {
	srv := newTestServer(t)

	for _, id := range []string{"abc", "0", "-1"} {
		var body map[string]string
		status := getJSON(t, srv.URL+"/api/v1/documents/"+id, &body)
		assert.Equal(t, http.StatusBadRequest, status, "id %q", id)
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	srv := newTestServer(t)

	var stats map[string]string
	status := getJSON(t, srv.URL+"/api/v1/cache/stats", &stats)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "disabled", stats["status"])

	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
