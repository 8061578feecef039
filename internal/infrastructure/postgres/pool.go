package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/dte-sv/pkg/config"
)

const defaultMaxConns = 10

// PoolOption ajusta el pool antes de abrir conexiones.
type PoolOption func(*poolOptions)

type poolOptions struct {
	log     zerolog.Logger
	appName string
}

// WithQueryLog registra las consultas lentas (umbral DB_SLOW_QUERY) en log.
func WithQueryLog(log zerolog.Logger) PoolOption {
	return func(o *poolOptions) { o.log = log }
}

// WithApplicationName identifica las conexiones en pg_stat_activity.
func WithApplicationName(name string) PoolOption {
	return func(o *poolOptions) { o.appName = name }
}

// NewPool abre el pool de PostgreSQL. Toda conexión registra el codec NUMERIC ↔ decimal
// (montos de los DTE) y pasa por el tracer de consultas.
func NewPool(ctx context.Context, cfg config.DBConfig, opts ...PoolOption) (*pgxpool.Pool, error) {
	o := poolOptions{log: zerolog.Nop(), appName: "dte-sv"}
	for _, opt := range opts {
		opt(&o)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	// Cada emisión retiene una conexión mientras bloquea la fila de su correlativo.
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	rp := poolConfig.ConnConfig.RuntimeParams
	if rp["application_name"] == "" {
		rp["application_name"] = o.appName
	}
	// Fechas del DTE se calculan en la app (hora de El Salvador); la DB guarda UTC.
	rp["timezone"] = "UTC"
	poolConfig.ConnConfig.Tracer = newQueryTracer(o.log, cfg.SlowQuery)

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}
