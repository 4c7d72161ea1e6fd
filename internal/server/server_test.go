package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/record"
	"github.com/sells-group/corpus-cli/internal/schema"
)

func flat(kv ...any) *record.Object {
	o := record.NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	res := ingest.NewResult()
	res.Add("tv.json", "tv-1", flat("id", "tv-1", "dims", flat("size", "55in")), flat("id", "tv-1", "size", "55in"))
	res.Add("tv.json", "tv-2", flat("id", "tv-2"), flat("id", "tv-2"))
	res.Add("gift.json", "shared", flat("title", "Mug"), flat("title", "Mug"))
	res.Add("tv.json", "shared", flat("title", "Remote"), flat("title", "Remote"))
	res.Stats = ingest.Stats{Datasets: 2, Stored: 4}

	reg := prometheus.NewRegistry()
	m := ingest.NewMetrics(reg)
	m.Records.WithLabelValues("tv.json", ingest.OutcomeStored).Add(3)

	srv := httptest.NewServer(New(res, schema.Index(res.CleanCorpus()), reg))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Status string       `json:"status"`
		Stats  ingest.Stats `json:"stats"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 4, body.Stats.Stored)
}

func TestListSubdomains(t *testing.T) {
	srv := newTestServer(t)

	var subs []SubdomainSummary
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/subdomains", &subs))
	assert.Equal(t, []SubdomainSummary{
		{Name: "tv.json", Records: 3},
		{Name: "gift.json", Records: 1},
	}, subs)
}

func TestListRecords(t *testing.T) {
	srv := newTestServer(t)

	var recs []map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/subdomains/tv.json/records", &recs))
	require.Len(t, recs, 3)
	assert.Equal(t, "tv-1", recs[0]["id"])
	assert.Equal(t, map[string]any{"id": "tv-1", "size": "55in"}, recs[0]["clean"])
	assert.Nil(t, recs[0]["raw"])
}

func TestListRecords_UnknownSubdomain(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/subdomains/nope.json/records", &body))
	assert.Equal(t, "subdomain not found", body["error"])
}

func TestGetRecord(t *testing.T) {
	srv := newTestServer(t)

	var rec map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/subdomains/tv.json/records/tv-1", &rec))
	assert.Equal(t, "tv.json", rec["subdomain"])
	assert.Equal(t, map[string]any{"id": "tv-1", "dims": map[string]any{"size": "55in"}}, rec["raw"])
	assert.Equal(t, map[string]any{"id": "tv-1", "size": "55in"}, rec["clean"])

	var missing map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/subdomains/tv.json/records/tv-9", &missing))
}

func TestLookupRecord_FirstSubdomainWins(t *testing.T) {
	srv := newTestServer(t)

	var rec map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/records/shared", &rec))
	assert.Equal(t, "tv.json", rec["subdomain"])
	assert.Equal(t, map[string]any{"title": "Remote"}, rec["raw"])
	assert.NotContains(t, rec, "clean")

	var missing map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/records/none", &missing))
	assert.Equal(t, "record not found", missing["error"])
}

func TestSchema(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Columns []string `json:"columns"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/schema", &body))
	assert.Equal(t, []string{"id", "size", "title"}, body.Columns)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics") //nolint:gosec
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "corpus_ingest_records_total")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/subdomains", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/subdomains", "application/json", nil) //nolint:gosec
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
