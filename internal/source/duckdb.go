package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapds/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Source { return NewDuckDB(logger) })
}

// DuckDBParams holds DuckDB-specific options.
// Parsed from Config.Params using mapstructure.
type DuckDBParams struct {
	// Extensions to install and load (e.g., "httpfs", "json")
	Extensions []string `mapstructure:"extensions"`

	// Settings applied at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// ParseDuckDBParams decodes DuckDB params from a generic map.
func ParseDuckDBParams(params map[string]any) (*DuckDBParams, error) {
	p := &DuckDBParams{}
	if len(params) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// DuckDB is a Source backed by an embedded DuckDB database.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDuckDB creates an unconnected DuckDB source.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{logger: logger}
}

// Open connects to the database in cfg.Database, or an in-memory one.
func (d *DuckDB) Open(ctx context.Context, cfg Config) error {
	params, err := ParseDuckDBParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Database
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}
	d.db = db

	for _, ext := range params.Extensions {
		if err := d.exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			_ = d.Close()
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(params.Settings))
	for k := range params.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := d.exec(ctx, fmt.Sprintf("SET %s = %s", k, quoteLiteral(params.Settings[k]))); err != nil {
			_ = d.Close()
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}

	d.logger.Debug("duckdb source opened", "path", path, "extensions", params.Extensions)
	return nil
}

// Close closes the database connection.
func (d *DuckDB) Close() error {
	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

func (d *DuckDB) exec(ctx context.Context, stmt string) error {
	if d.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// LoadCSV reads a CSV file with automatic schema detection.
func (d *DuckDB) LoadCSV(ctx context.Context, path string) (*core.Frame, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return d.Query(ctx, fmt.Sprintf("SELECT * FROM read_csv_auto(%s, header=true)", quoteLiteral(absPath)))
}

// Query runs query and converts the result set into a frame. Column
// types follow the database types; anything without a frame value type is
// rendered as a string.
func (d *DuckDB) Query(ctx context.Context, query string) (*core.Frame, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	f, err := scanFrame(rows, valueType)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("query loaded", "columns", f.NumCols(), "rows", f.NumRows())
	return f, nil
}

// valueType maps a DuckDB type name onto a frame value type.
func valueType(dbType string) core.ValueType {
	t := strings.ToUpper(dbType)
	switch {
	case t == "BIGINT" || t == "UBIGINT" || t == "HUGEINT":
		return core.ValueTypeInt64
	case t == "INTEGER" || t == "SMALLINT" || t == "TINYINT" || t == "USMALLINT" || t == "UTINYINT":
		return core.ValueTypeInt32
	case t == "UINTEGER":
		return core.ValueTypeInt64
	case t == "DOUBLE" || strings.HasPrefix(t, "DECIMAL"):
		return core.ValueTypeFP64
	case t == "FLOAT" || t == "REAL":
		return core.ValueTypeFP32
	case t == "BOOLEAN":
		return core.ValueTypeBoolean
	}
	return core.ValueTypeString
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ Source = (*DuckDB)(nil)
