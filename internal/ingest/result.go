package ingest

import (
	"github.com/sells-group/corpus-cli/internal/record"
)

// Stats counts what happened to records during a run.
type Stats struct {
	Datasets       int `json:"datasets"`
	DatasetsFailed int `json:"datasets_failed"`
	Subdomains     int `json:"subdomains"`
	Shaped         int `json:"shaped"`
	Invalid        int `json:"invalid"`
	FlattenErrors  int `json:"flatten_errors"`
	InvalidFlat    int `json:"invalid_flat"`
	Stored         int `json:"stored"`
}

func (s *Stats) add(o Stats) {
	s.Datasets += o.Datasets
	s.DatasetsFailed += o.DatasetsFailed
	s.Subdomains += o.Subdomains
	s.Shaped += o.Shaped
	s.Invalid += o.Invalid
	s.FlattenErrors += o.FlattenErrors
	s.InvalidFlat += o.InvalidFlat
	s.Stored += o.Stored
}

// Result holds the raw and clean stores of one run, keyed by subdomain then
// record id. A record id is present in both stores or in neither.
type Result struct {
	subdomains []string
	ids        map[string][]string
	raw        map[string]map[string]record.Value
	clean      map[string]map[string]*record.Object
	Stats      Stats
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{
		ids:   make(map[string][]string),
		raw:   make(map[string]map[string]record.Value),
		clean: make(map[string]map[string]*record.Object),
	}
}

// Add stores a record in both stores. Re-adding an id replaces it in place.
func (r *Result) Add(subdomain, id string, raw record.Value, clean *record.Object) {
	if _, ok := r.raw[subdomain]; !ok {
		r.subdomains = append(r.subdomains, subdomain)
		r.raw[subdomain] = make(map[string]record.Value)
		r.clean[subdomain] = make(map[string]*record.Object)
	}
	if _, ok := r.raw[subdomain][id]; !ok {
		r.ids[subdomain] = append(r.ids[subdomain], id)
	}
	r.raw[subdomain][id] = raw
	r.clean[subdomain][id] = clean
}

// merge folds o into r, keeping r's subdomain order first.
func (r *Result) merge(o *Result) {
	for _, sub := range o.subdomains {
		for _, id := range o.ids[sub] {
			r.Add(sub, id, o.raw[sub][id], o.clean[sub][id])
		}
	}
	r.Stats.add(o.Stats)
}

// Subdomains returns the subdomains with at least one stored record, in
// ingestion order.
func (r *Result) Subdomains() []string {
	out := make([]string, len(r.subdomains))
	copy(out, r.subdomains)
	return out
}

// IDs returns the record ids of subdomain in ingestion order.
func (r *Result) IDs(subdomain string) []string {
	out := make([]string, len(r.ids[subdomain]))
	copy(out, r.ids[subdomain])
	return out
}

// Len returns the number of stored records across all subdomains.
func (r *Result) Len() int {
	n := 0
	for _, ids := range r.ids {
		n += len(ids)
	}
	return n
}

// RawIn returns the raw record id of subdomain.
func (r *Result) RawIn(subdomain, id string) (record.Value, bool) {
	v, ok := r.raw[subdomain][id]
	return v, ok
}

// CleanIn returns the flat record id of subdomain.
func (r *Result) CleanIn(subdomain, id string) (*record.Object, bool) {
	v, ok := r.clean[subdomain][id]
	return v, ok
}

// Raw looks id up across subdomains in ingestion order and returns the
// first match.
func (r *Result) Raw(id string) (string, record.Value, bool) {
	for _, sub := range r.subdomains {
		if v, ok := r.raw[sub][id]; ok {
			return sub, v, true
		}
	}
	return "", nil, false
}

// RawCorpus returns the raw store.
func (r *Result) RawCorpus() map[string]map[string]record.Value {
	return r.raw
}

// CleanCorpus returns the clean store.
func (r *Result) CleanCorpus() map[string]map[string]*record.Object {
	return r.clean
}
