package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/leapds/internal/cli/config"
	"github.com/leapstack-labs/leapds/internal/plan"
	"github.com/leapstack-labs/leapds/internal/source"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/operator"
)

// lazySource opens the configured source on first use, so plans built
// only from string inputs never touch a database.
type lazySource struct {
	cfg    config.SourceConfig
	logger *slog.Logger

	mu  sync.Mutex
	src source.Source
}

func (l *lazySource) open(ctx context.Context) (source.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src != nil {
		return l.src, nil
	}
	src, err := source.Open(ctx, source.Config{
		Type:     l.cfg.Type,
		Database: l.cfg.Database,
		Params:   l.cfg.Params,
	}, l.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	l.src = src
	return src, nil
}

func (l *lazySource) Query(ctx context.Context, query string) (*core.Frame, error) {
	src, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	return src.Query(ctx, query)
}

func (l *lazySource) LoadCSV(ctx context.Context, path string) (*core.Frame, error) {
	src, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	return src.LoadCSV(ctx, path)
}

func (l *lazySource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src == nil {
		return nil
	}
	return l.src.Close()
}

// buildPlan loads the plan at path and builds it on c. Relative CSV paths
// resolve against the plan's directory.
func buildPlan(ctx context.Context, path string, c *operator.Context, cfg *config.Config, logger *slog.Logger) (*plan.Graph, func(), error) {
	p, err := plan.Load(path)
	if err != nil {
		return nil, nil, err
	}

	src := &lazySource{cfg: cfg.Source, logger: logger}
	cleanup := func() {
		if err := src.Close(); err != nil {
			logger.Warn("failed to close source", "error", err)
		}
	}

	g, err := p.Build(ctx, c, src, filepath.Dir(path))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Debug("plan built", "path", path, "nodes", len(p.Nodes), "outputs", len(g.Outputs))
	return g, cleanup, nil
}
