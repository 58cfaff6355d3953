// Package db provides a pgxpool-based connection pool with prepared statement
// registration, health checking and embedded schema migrations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepwise/prepwise-api/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.DBPoolMinConns > 0 {
		poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	}
	if cfg.DBPoolMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	}
	if cfg.DBPoolMaxLife > 0 {
		poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Column lists shared by the stores. Kept here so prepared statements and
// the dynamically built list queries scan identical shapes.
const (
	AlertColumns    = "id, title, description, region_tags, severity, source, geometry, is_active, published_at, expires_at, created_by, created_at, updated_at"
	DeviceColumns   = "id, owner_id, token, platform, device_name, is_active, last_used, created_at"
	ScenarioColumns = "s.id, s.title, s.description, s.region_tags, s.decision_tree, s.difficulty, s.estimated_duration, s.max_score, s.is_active, s.created_at, s.updated_at"
	AttemptColumns  = "a.id, a.owner_id, a.scenario_id, s.title, s.max_score, a.path, a.choices_made, a.score, a.completed, a.started_at, a.ended_at"
)

// registerPreparedStatements registers the fixed-shape statements the API and
// CLI use. Filtered list queries are built per request and not prepared.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Alerts
		"alert_by_id":     "SELECT " + AlertColumns + " FROM alerts WHERE id = $1 AND is_active = true",
		"alert_by_id_any": "SELECT " + AlertColumns + " FROM alerts WHERE id = $1",

		// Devices
		"device_by_id":             "SELECT " + DeviceColumns + " FROM devices WHERE id = $1 AND owner_id = $2",
		"device_by_id_any":         "SELECT " + DeviceColumns + " FROM devices WHERE id = $1",
		"devices_by_owner":         "SELECT " + DeviceColumns + " FROM devices WHERE owner_id = $1 ORDER BY last_used DESC",
		"active_devices":           "SELECT " + DeviceColumns + " FROM devices WHERE is_active = true ORDER BY last_used DESC",
		"active_device_tokens":     "SELECT DISTINCT token FROM devices WHERE is_active = true",
		"deactivate_device_tokens": "UPDATE devices SET is_active = false WHERE token = ANY($1) AND is_active = true",

		// Drills
		"scenario_by_id":       "SELECT " + ScenarioColumns + " FROM drill_scenarios s WHERE s.id = $1 AND s.is_active = true",
		"scenario_id_by_title": "SELECT id FROM drill_scenarios WHERE title = $1 ORDER BY created_at LIMIT 1",
		"attempt_by_id":        "SELECT " + AttemptColumns + " FROM drill_attempts a JOIN drill_scenarios s ON s.id = a.scenario_id WHERE a.id = $1 AND a.owner_id = $2",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
