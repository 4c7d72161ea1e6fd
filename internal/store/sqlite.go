package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/corpus-cli/internal/ingest"
	"github.com/sells-group/corpus-cli/internal/schema"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS corpus_records (
	subdomain  TEXT NOT NULL,
	id         TEXT NOT NULL,
	position   INTEGER NOT NULL,
	raw        TEXT NOT NULL,
	clean      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (subdomain, id)
);

CREATE TABLE IF NOT EXISTS corpus_columns (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS corpus_runs (
	id         TEXT PRIMARY KEY,
	stats      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_corpus_records_position ON corpus_records(subdomain, position);
CREATE INDEX IF NOT EXISTS idx_corpus_runs_created_at ON corpus_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, res *ingest.Result, cols schema.Columns) (int64, error) {
	rows, err := recordRows(res)
	if err != nil {
		return 0, err
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal stats")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO corpus_records (subdomain, id, position, raw, clean, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (subdomain, id) DO UPDATE SET
			position = excluded.position,
			raw = excluded.raw,
			clean = excluded.clean,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare record upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var written int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.subdomain, r.id, r.position, r.raw, r.clean, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert record %s/%s", r.subdomain, r.id)
		}
		written++
	}

	for _, name := range cols.Sorted() {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO corpus_columns (name) VALUES (?)`, name); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert column %s", name)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpus_runs (id, stats, created_at) VALUES (?, ?, ?)`,
		uuid.New().String(), string(statsJSON), now,
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: insert run")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return written, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, subdomain string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subdomain, id, position, raw, clean FROM corpus_records WHERE subdomain = ? ORDER BY position, id`,
		subdomain,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []Record
	for rows.Next() {
		var (
			r          Record
			raw, clean string
		)
		if err := rows.Scan(&r.Subdomain, &r.ID, &r.Position, &raw, &clean); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		r.Raw = json.RawMessage(raw)
		r.Clean = json.RawMessage(clean)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) ListColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM corpus_columns ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list columns")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan column")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list columns iterate")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stats, created_at FROM corpus_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Run
	for rows.Next() {
		var (
			r     Run
			stats string
		)
		if err := rows.Scan(&r.ID, &stats, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run stats")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
