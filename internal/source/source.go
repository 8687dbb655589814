// Package source loads host frames from local data sources so they can be
// bound into a graph as literals.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapds/pkg/core"
)

// Config selects and configures a source.
type Config struct {
	// Type is the registered source name, e.g. "duckdb"
	Type string
	// Database is the database path; empty means in-memory
	Database string
	// Params holds source-specific options decoded by the source
	Params map[string]any
}

// Source produces frames from queries and files.
type Source interface {
	// Open connects the source.
	Open(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Query runs a query and returns its result as a frame.
	Query(ctx context.Context, query string) (*core.Frame, error)

	// LoadCSV reads a CSV file with a header row into a frame.
	LoadCSV(ctx context.Context, path string) (*core.Frame, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Source)
)

// Register adds a source factory under name.
func Register(name string, factory func(*slog.Logger) Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// List returns the registered source names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the source named by cfg.Type and connects it.
// The logger parameter may be nil.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}

	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Type: cfg.Type, Available: List()}
	}

	src := factory(logger)
	if err := src.Open(ctx, cfg); err != nil {
		return nil, err
	}
	return src, nil
}

// UnknownSourceError is returned when an unknown source type is requested.
type UnknownSourceError struct {
	Type      string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %v\nHint: Check source.type in leapds.yaml", e.Type, e.Available)
}
