package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/db"
	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/schema"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS corpus_records (
	subdomain  TEXT NOT NULL,
	id         TEXT NOT NULL,
	position   INTEGER NOT NULL,
	raw        JSONB NOT NULL,
	clean      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (subdomain, id)
);

CREATE TABLE IF NOT EXISTS corpus_columns (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS corpus_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	stats      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_corpus_records_position ON corpus_records(subdomain, position);
CREATE INDEX IF NOT EXISTS idx_corpus_runs_created_at ON corpus_runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var recordColumns = []string{"subdomain", "id", "position", "raw", "clean", "updated_at"}

func (s *PostgresStore) SaveResult(ctx context.Context, res *ingest.Result, cols schema.Columns) (int64, error) {
	rows, err := recordRows(res)
	if err != nil {
		return 0, err
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal stats")
	}

	now := time.Now().UTC()
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{r.subdomain, r.id, r.position, r.raw, r.clean, now}
	}
	written, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "corpus_records",
		Columns:      recordColumns,
		ConflictKeys: []string{"subdomain", "id"},
	}, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save records")
	}

	names := cols.Sorted()
	colValues := make([][]any, len(names))
	for i, name := range names {
		colValues[i] = []any{name}
	}
	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "corpus_columns",
		Columns:      []string{"name"},
		ConflictKeys: []string{"name"},
		UpdateCols:   []string{},
	}, colValues); err != nil {
		return 0, eris.Wrap(err, "postgres: save columns")
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO corpus_runs (id, stats, created_at) VALUES ($1, $2, $3)`,
		uuid.New().String(), string(statsJSON), now,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: insert run")
	}
	return written, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, subdomain string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT subdomain, id, position, raw::text, clean::text FROM corpus_records WHERE subdomain = $1 ORDER BY position, id`,
		subdomain,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r          Record
			raw, clean string
		)
		if err := rows.Scan(&r.Subdomain, &r.ID, &r.Position, &raw, &clean); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		r.Raw = json.RawMessage(raw)
		r.Clean = json.RawMessage(clean)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) ListColumns(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM corpus_columns ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list columns")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan column")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list columns iterate")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, stats::text, created_at FROM corpus_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r     Run
			stats string
		)
		if err := rows.Scan(&r.ID, &stats, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run stats")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
