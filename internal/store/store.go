// Package store persists ingestion results to SQLite or Postgres.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/schema"
)

// Record is one stored record with its raw and clean forms as JSON.
type Record struct {
	Subdomain string          `json:"subdomain"`
	ID        string          `json:"id"`
	Position  int             `json:"position"`
	Raw       json.RawMessage `json:"raw"`
	Clean     json.RawMessage `json:"clean"`
}

// Run is a saved ingestion run summary.
type Run struct {
	ID        string       `json:"id"`
	Stats     ingest.Stats `json:"stats"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store defines the persistence interface for ingestion results.
type Store interface {
	// SaveResult upserts every record of res keyed by (subdomain, id), adds
	// cols to the column catalogue and logs a run row. It returns the number
	// of records written.
	SaveResult(ctx context.Context, res *ingest.Result, cols schema.Columns) (int64, error)
	ListRecords(ctx context.Context, subdomain string) ([]Record, error)
	ListColumns(ctx context.Context) ([]string, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// recordRow is one result record prepared for insertion.
type recordRow struct {
	subdomain string
	id        string
	position  int
	raw       string
	clean     string
}

// recordRows flattens res into insertion rows in ingestion order.
func recordRows(res *ingest.Result) ([]recordRow, error) {
	var rows []recordRow
	for _, sub := range res.Subdomains() {
		for i, id := range res.IDs(sub) {
			raw, _ := res.RawIn(sub, id)
			clean, _ := res.CleanIn(sub, id)

			rawJSON, err := json.Marshal(raw)
			if err != nil {
				return nil, eris.Wrapf(err, "store: marshal raw %s/%s", sub, id)
			}
			cleanJSON, err := json.Marshal(clean)
			if err != nil {
				return nil, eris.Wrapf(err, "store: marshal clean %s/%s", sub, id)
			}
			rows = append(rows, recordRow{
				subdomain: sub,
				id:        id,
				position:  i,
				raw:       string(rawJSON),
				clean:     string(cleanJSON),
			})
		}
	}
	return rows, nil
}
