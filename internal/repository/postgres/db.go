package postgres

import (
	"context"
	"log"

	"edrs-docstore/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DB owns the pgx pool shared by the user registry, the document registry and the
// audit writer.
type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errFailedParseDatabaseConfig(err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.HealthCheckPeriod = poolHealthCheckPeriod
	poolConfig.MaxConnLifetime = poolMaxConnLifetime
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errFailedCreateConnectionPool(err)
	}

	db := &DB{Pool: pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFailedPingDatabase(err)
	}

	log.Printf("connected to postgres at %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return db, nil
}

// Ping backs the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	return db.Pool.Ping(ctx)
}

// RegisterPoolMetrics exports pool occupancy as gauges read at scrape time.
func (db *DB) RegisterPoolMetrics(reg prometheus.Registerer) error {
	gauges := map[string]func(*pgxpool.Stat) float64{
		"acquired": func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) },
		"idle":     func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) },
		"total":    func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) },
		"max":      func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) },
	}
	for state, read := range gauges {
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        poolMetricName,
			Help:        poolMetricHelp,
			ConstLabels: prometheus.Labels{"state": state},
		}, func() float64 { return read(db.Pool.Stat()) })
		if err := reg.Register(gauge); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
