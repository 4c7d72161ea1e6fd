package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/adapter"
	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/corpus"
	"github.com/sells-group/corpus-cli/internal/flatten"
	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/schema"
)

// defaultAdapter shapes datasets that do not name one.
const defaultAdapter = "generic"

// flattenOptions maps the ingest config onto flattening options.
func flattenOptions(c config.IngestConfig) (flatten.Options, error) {
	mode, err := flatten.ParseKeyMode(c.KeyMode)
	if err != nil {
		return flatten.Options{}, err
	}
	opts := flatten.Options{
		Separator: c.Separator,
		KeyMode:   mode,
	}
	if c.ReservedField != "" {
		opts.Reserved = []string{c.ReservedField}
	}
	return opts, nil
}

// loadDatasets loads the corpus of every configured dataset and resolves its
// adapter. A missing corpus directory is fatal.
func loadDatasets(ctx context.Context, c *config.Config) ([]ingest.Dataset, error) {
	ids, err := adapter.NewIDGenerator(c.Ingest.IDMode)
	if err != nil {
		return nil, err
	}
	reg := adapter.NewRegistry(ids)

	datasets := make([]ingest.Dataset, 0, len(c.Datasets))
	for _, dc := range c.Datasets {
		name := dc.Adapter
		if name == "" {
			name = defaultAdapter
		}
		a, err := reg.Get(name)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset %s", dc.Name)
		}

		cp, err := corpus.Load(ctx, dc.Dir, dc.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset %s", dc.Name)
		}
		zap.L().Info("dataset loaded",
			zap.String("dataset", dc.Name),
			zap.String("adapter", name),
			zap.Int("subdomains", cp.Len()),
		)
		datasets = append(datasets, ingest.Dataset{Name: dc.Name, Corpus: cp, Adapter: a})
	}
	return datasets, nil
}

// runIngest validates the config for mode, then loads and ingests every
// dataset. Counters are registered with reg when it is non-nil.
func runIngest(ctx context.Context, c *config.Config, mode string, reg prometheus.Registerer) (*ingest.Result, schema.Columns, error) {
	if err := c.Validate(mode); err != nil {
		return nil, nil, err
	}

	opts, err := flattenOptions(c.Ingest)
	if err != nil {
		return nil, nil, err
	}

	datasets, err := loadDatasets(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	engine := ingest.NewEngine(flatten.New(opts),
		ingest.WithWorkers(c.Ingest.Workers),
		ingest.WithMetrics(ingest.NewMetrics(reg)),
	)
	res, err := engine.Run(ctx, datasets)
	if err != nil {
		return nil, nil, err
	}
	return res, schema.Index(res.CleanCorpus()), nil
}
