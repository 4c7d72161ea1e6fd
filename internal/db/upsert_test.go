package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "corpus_records",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "corpus_records",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "corpus_records",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "name"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_corpus_records"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "corpus_records" .* ON CONFLICT \("id"\) DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "corpus_records",
		Columns:      cols,
		ConflictKeys: []string{"id"},
	}, [][]any{{"1", "a"}, {"2", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailsRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_corpus_columns"}, cols).WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "corpus_columns",
		Columns:      cols,
		ConflictKeys: []string{"id"},
	}, [][]any{{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{
			name: "update all non-key columns",
			cfg:  UpsertConfig{Table: "t", Columns: []string{"k", "a", "b"}, ConflictKeys: []string{"k"}},
			want: `INSERT INTO "t" ("k", "a", "b") SELECT "k", "a", "b" FROM "tmp" ON CONFLICT ("k") DO UPDATE SET "a" = EXCLUDED."a", "b" = EXCLUDED."b"`,
		},
		{
			name: "explicit update columns",
			cfg:  UpsertConfig{Table: "t", Columns: []string{"k", "a", "b"}, ConflictKeys: []string{"k"}, UpdateCols: []string{"b"}},
			want: `INSERT INTO "t" ("k", "a", "b") SELECT "k", "a", "b" FROM "tmp" ON CONFLICT ("k") DO UPDATE SET "b" = EXCLUDED."b"`,
		},
		{
			name: "do nothing",
			cfg:  UpsertConfig{Table: "t", Columns: []string{"k"}, ConflictKeys: []string{"k"}, UpdateCols: []string{}},
			want: `INSERT INTO "t" ("k") SELECT "k" FROM "tmp" ON CONFLICT ("k") DO NOTHING`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, upsertSQL(tt.cfg, "tmp"))
		})
	}
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"corpus.records", `"corpus"."records"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "test_table", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"corpus", "records"}, []string{"a"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "corpus.records", []string{"a"}, [][]any{{1}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
