// Package server exposes one ingestion result over a read-only HTTP API.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/record"
	"github.com/sells-group/corpus-cli/internal/schema"
)

// SubdomainSummary describes one subdomain in the listing.
type SubdomainSummary struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

// RecordResponse is a single record with both of its stored forms.
type RecordResponse struct {
	Subdomain string         `json:"subdomain"`
	ID        string         `json:"id"`
	Raw       record.Value   `json:"raw"`
	Clean     *record.Object `json:"clean,omitempty"`
}

type handler struct {
	res  *ingest.Result
	cols schema.Columns
	log  *zap.Logger
}

// New returns a router serving res and cols. Metrics are gathered from g; a
// nil g serves the default registry.
func New(res *ingest.Result, cols schema.Columns, g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	h := &handler{
		res:  res,
		cols: cols,
		log:  zap.L().With(zap.String("component", "server")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	r.Get("/subdomains", h.listSubdomains)
	r.Get("/subdomains/{name}/records", h.listRecords)
	r.Get("/subdomains/{name}/records/{id}", h.getRecord)
	r.Get("/records/{id}", h.lookupRecord)
	r.Get("/schema", h.schema)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  h.res.Stats,
	})
}

func (h *handler) listSubdomains(w http.ResponseWriter, _ *http.Request) {
	subs := h.res.Subdomains()
	out := make([]SubdomainSummary, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubdomainSummary{Name: s, Records: len(h.res.IDs(s))})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ids := h.res.IDs(name)
	if len(ids) == 0 {
		h.writeError(w, http.StatusNotFound, "subdomain not found")
		return
	}

	out := make([]RecordResponse, 0, len(ids))
	for _, id := range ids {
		clean, _ := h.res.CleanIn(name, id)
		out = append(out, RecordResponse{Subdomain: name, ID: id, Clean: clean})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) getRecord(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "name"), chi.URLParam(r, "id")
	raw, ok := h.res.RawIn(name, id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	clean, _ := h.res.CleanIn(name, id)
	h.writeJSON(w, http.StatusOK, RecordResponse{Subdomain: name, ID: id, Raw: raw, Clean: clean})
}

// lookupRecord finds a raw record by id alone, searching subdomains in order.
func (h *handler) lookupRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, raw, ok := h.res.Raw(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	h.writeJSON(w, http.StatusOK, RecordResponse{Subdomain: sub, ID: id, Raw: raw})
}

func (h *handler) schema(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"columns": h.cols.Sorted()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode response", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body) //nolint:errcheck
}

func (h *handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
