package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ApplicationName tags the portal's connections in pg_stat_activity.
const ApplicationName = "sanjeevni-portal"

// PoolOptions configures the Postgres pool behind the record store and the
// migrate commands.
type PoolOptions struct {
	URL      string
	MaxConns int32
	MinConns int32
	// StatementTimeout bounds each record read or upsert on the server side.
	// Zero leaves the server default.
	StatementTimeout time.Duration
	Logger           zerolog.Logger
}

// ParsePoolConfig turns opts into a pgxpool config without connecting.
func ParsePoolConfig(opts PoolOptions) (*pgxpool.Config, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("parse database url: DATABASE_URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("min conns %d exceeds max conns %d", opts.MinConns, cfg.MaxConns)
	}
	cfg.MinConns = opts.MinConns

	params := cfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = ApplicationName
	}
	if opts.StatementTimeout > 0 {
		params["statement_timeout"] = fmt.Sprintf("%d", opts.StatementTimeout.Milliseconds())
	}
	return cfg, nil
}

// NewPool connects and pings before returning, so a bad DATABASE_URL fails
// at startup instead of on the first booking.
func NewPool(ctx context.Context, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := ParsePoolConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	opts.Logger.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("connected to postgres record store")
	return pool, nil
}
