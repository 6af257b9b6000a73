package main

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/config"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/pkg/logger"
	"aurora-dashboard/pkg/utils"
)

// backend is the service graph one command runs against.
type backend struct {
	engine  *analytics.Engine
	rollups *analytics.RollupService
	tools   *reporting.Service
	close   func()
}

// Swapped in tests.
var (
	loadConfig  = config.Load
	openBackend = openPostgresBackend
)

func openPostgresBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 4})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	b := newBackend(calls.NewPostgresRepo(db), audit.NewPostgresRepo(db), cfg)
	b.close = func() { _ = db.Close() }
	return b, nil
}

func newBackend(repo calls.Repository, auditRepo audit.Repository, cfg config.Config) *backend {
	loc := cfg.Location()
	engine := analytics.NewEngine(repo, loc, cfg.Analytics.Capacity)
	return &backend{
		engine:  engine,
		rollups: analytics.NewRollupService(repo, loc),
		tools:   reporting.NewService(repo, engine, audit.NewService(auditRepo), cfg.Analytics.ExportLimit, loc),
		close:   func() {},
	}
}

// withBackend loads config, opens the store and runs fn with a CLI logger in ctx.
func withBackend(ctx context.Context, fn func(ctx context.Context, cfg config.Config, b *backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx = logger.With(ctx, logger.New(cfg.App.Env, cfg.App.LogLevel))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()
	return fn(ctx, cfg, b)
}
