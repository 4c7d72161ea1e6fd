// Package ingest runs datasets through shaping, validation and flattening
// and accumulates the raw and clean record stores.
package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/corpus-cli/internal/adapter"
	"github.com/sells-group/corpus-cli/internal/corpus"
	"github.com/sells-group/corpus-cli/internal/flatten"
	"github.com/sells-group/corpus-cli/internal/record"
	"github.com/sells-group/corpus-cli/internal/validate"
)

// Dataset is one loaded corpus together with the adapter that shapes its
// subdomains.
type Dataset struct {
	Name    string
	Corpus  *corpus.Corpus
	Adapter adapter.Adapter
}

// Engine orchestrates ingestion runs.
type Engine struct {
	flattener *flatten.Engine
	workers   int
	metrics   *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many datasets are ingested concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMetrics reports record outcomes to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an ingestion engine using f for flattening.
func NewEngine(f *flatten.Engine, opts ...Option) *Engine {
	e := &Engine{
		flattener: f,
		workers:   1,
	}
	for _, o := range opts {
		o(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Run ingests every dataset. A dataset that fails is logged and contributes
// nothing; the others continue. Only context cancellation is returned.
func (e *Engine) Run(ctx context.Context, datasets []Dataset) (*Result, error) {
	log := zap.L().With(zap.String("component", "ingest.engine"))
	start := time.Now()

	parts := make([]*Result, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, ds := range datasets {
		g.Go(func() error {
			dsLog := log.With(zap.String("dataset", ds.Name))

			part, counts, err := e.ingestDataset(gctx, ds)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				dsLog.Error("ingestion failed, skipping dataset", zap.Error(err))
				e.metrics.datasetFailed()
				parts[i] = &Result{Stats: Stats{Datasets: 1, DatasetsFailed: 1}}
				return nil
			}
			e.metrics.flush(counts)
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: run")
	}

	res := NewResult()
	for _, part := range parts {
		res.merge(part)
	}

	log.Info("ingestion complete",
		zap.Int("datasets", res.Stats.Datasets),
		zap.Int("failed", res.Stats.DatasetsFailed),
		zap.Int("subdomains", len(res.Subdomains())),
		zap.Int("records", res.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// ingestDataset processes all subdomains of ds into a private Result and
// tallies the record outcomes. Any subdomain-level error discards the whole
// dataset, counts included.
func (e *Engine) ingestDataset(ctx context.Context, ds Dataset) (*Result, outcomeCounts, error) {
	if ds.Corpus == nil || ds.Adapter == nil {
		return nil, nil, eris.Errorf("ingest: dataset %q is not configured", ds.Name)
	}
	zap.L().Debug("ingesting dataset",
		zap.String("component", "ingest.engine"),
		zap.String("dataset", ds.Name),
		zap.String("dir", ds.Corpus.Dir()),
		zap.Int("subdomains", ds.Corpus.Len()),
	)

	part := NewResult()
	part.Stats.Datasets = 1
	counts := make(outcomeCounts)
	for _, sub := range ds.Corpus.Names() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc, _ := ds.Corpus.Document(sub)
		out, err := adapter.Corpus(ds.Adapter, sub, doc)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: dataset %s", ds.Name)
		}
		part.Stats.Subdomains++
		part.Stats.Shaped += out.Shaped
		part.Stats.Invalid += out.Rejected
		counts.add(sub, OutcomeInvalid, out.Rejected)

		e.ingestEntries(part, counts, sub, out.Entries)
	}
	return part, counts, nil
}

// ingestEntries parses, flattens and round-trips each validated entry and stores
// the survivors. Failures are logged per record.
func (e *Engine) ingestEntries(part *Result, counts outcomeCounts, subdomain string, entries []validate.Entry) {
	log := zap.L().With(zap.String("component", "ingest.engine"), zap.String("subdomain", subdomain))

	for _, entry := range entries {
		item, err := record.ParseLiteral(entry.Text)
		if err != nil {
			log.Warn("flatten error", zap.String("id", entry.ID), zap.String("raw", entry.Text), zap.Error(err))
			part.Stats.FlattenErrors++
			counts.add(subdomain, OutcomeFlattenError, 1)
			continue
		}

		clean, err := e.flattener.Flatten(item)
		if err != nil {
			log.Warn("flatten error",
				zap.String("id", entry.ID),
				zap.String("type", record.TypeName(item)),
				zap.String("raw", entry.Text),
				zap.Error(err),
			)
			part.Stats.FlattenErrors++
			counts.add(subdomain, OutcomeFlattenError, 1)
			continue
		}

		if text, ok := validate.RoundTrip(clean); !ok {
			log.Warn("invalid flat record", zap.String("id", entry.ID), zap.String("raw", text))
			part.Stats.InvalidFlat++
			counts.add(subdomain, OutcomeInvalidFlat, 1)
			continue
		}

		part.Add(subdomain, entry.ID, item, clean)
		part.Stats.Stored++
		counts.add(subdomain, OutcomeStored, 1)
	}
}
