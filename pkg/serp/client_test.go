package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search.json", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "best 55in tv", q.Get("q"))
		assert.Equal(t, "15", q.Get("num"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "google.com", q.Get("google_domain"))
		assert.Equal(t, "en", q.Get("hl"))
		assert.Equal(t, "us", q.Get("gl"))
		assert.Equal(t, "desktop", q.Get("device"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			OrganicResults: []OrganicResult{
				{Position: 1, Title: "A", Snippet: "First snippet."},
				{Position: 2, Title: "B"},
				{Position: 3, Title: "C", Snippet: "Third snippet."},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
	snippets, err := client.Search(context.Background(), "best 55in tv")

	require.NoError(t, err)
	assert.Equal(t, []string{"First snippet.", "Third snippet."}, snippets)
}

func TestSearch_CustomParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "bing", q.Get("engine"))
		assert.Equal(t, "de", q.Get("gl"))
		assert.False(t, q.Has("device"))
		assert.False(t, q.Has("google_domain"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic_results": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0),
		WithParams(Params{Num: 5, Engine: "bing", GL: "de"}))
	snippets, err := client.Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestSearch_APIErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Invalid API key."}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL), WithRateLimit(0))
	snippets, err := client.Search(context.Background(), "q")

	require.Error(t, err)
	assert.Nil(t, snippets)
	assert.Contains(t, err.Error(), "Invalid API key.")
}

func TestSearch_ErrorFieldWithOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Search(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api error")
}

func TestSearch_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down")) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Search(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.HTTPStatus())
}

func TestSearch_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json")) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Search(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := NewClient("k", WithRateLimit(0))
	_, err := client.Search(context.Background(), "")
	require.Error(t, err)
}

func TestSearch_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"organic_results": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0.01))

	_, err := client.Search(context.Background(), "first")
	require.NoError(t, err)

	// The second call must wait far longer than the context allows.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, "second")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Search(ctx, "q")
	assert.Error(t, err)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 15, p.Num)
	assert.Equal(t, "google", p.Engine)
	assert.Equal(t, "desktop", p.Device)
}
