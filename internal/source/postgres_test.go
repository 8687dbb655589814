package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapds/internal/testutil"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Query(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		want      *core.Frame
		errMsg    string
	}{
		{
			name:   "query without connection",
			errMsg: "database connection not established",
		},
		{
			name:    "typed columns",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRowsWithColumnDefinition(
					sqlmock.NewColumn("id").OfType("INT8", int64(0)),
					sqlmock.NewColumn("age").OfType("INT4", int64(0)),
					sqlmock.NewColumn("score").OfType("NUMERIC", ""),
					sqlmock.NewColumn("active").OfType("BOOL", false),
					sqlmock.NewColumn("name").OfType("TEXT", ""),
				).
					AddRow(int64(1), int64(30), "2.50", true, "alice").
					AddRow(int64(2), nil, "1", false, nil)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			want: &core.Frame{Columns: []core.Column{
				{Name: "id", Type: core.ValueTypeInt64, Values: []any{int64(1), int64(2)}},
				{Name: "age", Type: core.ValueTypeInt32, Values: []any{int32(30), nil}},
				{Name: "score", Type: core.ValueTypeFP64, Values: []any{2.5, 1.0}},
				{Name: "active", Type: core.ValueTypeBoolean, Values: []any{true, false}},
				{Name: "name", Type: core.ValueTypeString, Values: []any{"alice", nil}},
			}},
		},
		{
			name:    "query with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute query",
		},
		{
			name:    "unparseable numeric",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRowsWithColumnDefinition(sqlmock.NewColumn("score").OfType("NUMERIC", "")).
					AddRow("NaN-ish")
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			errMsg: `column "score"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPostgres(testutil.NewTestLogger(t))

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				tt.setupMock(mock)
				p.db = db
			}

			f, err := p.Query(context.Background(), "SELECT * FROM people")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
			assert.NoError(t, f.Validate())
		})
	}
}

func TestPostgres_Close(t *testing.T) {
	p := NewPostgres(nil)
	assert.NoError(t, p.Close())

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	p.db = db

	assert.NoError(t, p.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("city,n\nOslo,1\n\"Rome, IT\",2\n"), 0o600))

	f, err := NewPostgres(nil).LoadCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "n"}, f.ColumnNames())
	assert.Equal(t, []any{"Oslo", "Rome, IT"}, f.Columns[0].Values)
	assert.Equal(t, []any{"1", "2"}, f.Columns[1].Values)

	_, err = NewPostgres(nil).LoadCSV(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = readCSV(strings.NewReader(""))
	assert.ErrorContains(t, err, "CSV header")

	_, err = readCSV(strings.NewReader("a,b\n1\n"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t, "host=localhost port=5432 dbname=analytics sslmode=disable",
		postgresDSN("analytics", &PostgresParams{}))
	assert.Equal(t, "host=db port=6543 dbname=analytics sslmode=require user=ds password=pw",
		postgresDSN("analytics", &PostgresParams{Host: "db", Port: 6543, SSLMode: "require", User: "ds", Password: "pw"}))
}

func TestPostgres_OpenValidation(t *testing.T) {
	_, err := ParsePostgresParams(map[string]any{"hots": "db"})
	assert.ErrorContains(t, err, "invalid postgres params")

	p, err := ParsePostgresParams(map[string]any{"port": "6543"})
	require.NoError(t, err)
	assert.Equal(t, 6543, p.Port)

	err = NewPostgres(nil).Open(context.Background(), Config{Type: "postgres"})
	assert.ErrorContains(t, err, "requires a database name")

	assert.Contains(t, List(), "postgres")
}
