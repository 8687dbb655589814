package source

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapds/pkg/core"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func init() {
	Register("postgres", func(logger *slog.Logger) Source { return NewPostgres(logger) })
}

// PostgresParams holds PostgreSQL connection options.
// Parsed from Config.Params using mapstructure.
type PostgresParams struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ParsePostgresParams decodes PostgreSQL params from a generic map.
func ParsePostgresParams(params map[string]any) (*PostgresParams, error) {
	p := &PostgresParams{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("invalid postgres params: %w", err)
	}
	return p, nil
}

// Postgres is a Source that reads query results from PostgreSQL.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates an unconnected PostgreSQL source.
func NewPostgres(logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Postgres{logger: logger}
}

// Open connects to cfg.Database on the server described by cfg.Params.
func (p *Postgres) Open(ctx context.Context, cfg Config) error {
	params, err := ParsePostgresParams(cfg.Params)
	if err != nil {
		return err
	}
	if cfg.Database == "" {
		return fmt.Errorf("postgres source requires a database name")
	}

	p.logger.Debug("connecting to postgres", slog.String("host", params.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", postgresDSN(cfg.Database, params))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	p.db = db
	return nil
}

// postgresDSN builds a key=value connection string.
func postgresDSN(database string, params *PostgresParams) string {
	host := params.Host
	if host == "" {
		host = "localhost"
	}
	port := params.Port
	if port == 0 {
		port = 5432
	}
	sslmode := params.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, database, sslmode)
	if params.User != "" {
		dsn += fmt.Sprintf(" user=%s", params.User)
	}
	if params.Password != "" {
		dsn += fmt.Sprintf(" password=%s", params.Password)
	}
	return dsn
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		return err
	}
	return nil
}

// Query runs query and converts the result set into a frame.
func (p *Postgres) Query(ctx context.Context, query string) (*core.Frame, error) {
	if p.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	f, err := scanFrame(rows, postgresValueType)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("query loaded", "columns", f.NumCols(), "rows", f.NumRows())
	return f, nil
}

// LoadCSV reads a CSV file on the host. The server is not involved and
// every column is loaded as a string.
func (p *Postgres) LoadCSV(_ context.Context, path string) (*core.Frame, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	file, err := os.Open(absPath) //nolint:gosec // path comes from the plan file
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return readCSV(file)
}

func readCSV(r io.Reader) (*core.Frame, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	f := &core.Frame{Columns: make([]core.Column, len(headers))}
	for i, h := range headers {
		f.Columns[i] = core.Column{Name: h, Type: core.ValueTypeString, Values: []any{}}
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		for i, v := range record {
			f.Columns[i].Values = append(f.Columns[i].Values, v)
		}
	}
	return f, nil
}

// postgresValueType maps a PostgreSQL type name onto a frame value type.
func postgresValueType(dbType string) core.ValueType {
	switch strings.ToUpper(dbType) {
	case "INT8":
		return core.ValueTypeInt64
	case "INT4", "INT2":
		return core.ValueTypeInt32
	case "FLOAT8", "NUMERIC":
		return core.ValueTypeFP64
	case "FLOAT4":
		return core.ValueTypeFP32
	case "BOOL":
		return core.ValueTypeBoolean
	}
	return core.ValueTypeString
}

var _ Source = (*Postgres)(nil)
