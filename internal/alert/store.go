package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prepwise/prepwise-api/internal/db"
)

// Store persists alerts in Postgres.
type Store struct {
	pool *db.Pool
}

// NewStore creates a Store on pool.
func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a normalized alert.
func (s *Store) Create(ctx context.Context, in CreateInput, createdBy uuid.UUID) (*Alert, error) {
	var author any
	if createdBy != uuid.Nil {
		author = createdBy
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO alerts (
			title, description, region_tags, severity, source, geometry,
			is_active, published_at, expires_at, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+db.AlertColumns,
		in.Title, in.Description, in.RegionTags, string(in.Severity), in.Source,
		geometryArg(in.Geometry), *in.IsActive, *in.PublishedAt, in.ExpiresAt, author,
	)
	a, err := scanAlert(row)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	return a, nil
}

// Update applies the non-nil fields of in to alert id, active or not.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Alert, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE alerts SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			source      = COALESCE($4, source),
			geometry    = CASE WHEN $5::boolean THEN $6::jsonb ELSE geometry END,
			is_active   = COALESCE($7, is_active),
			expires_at  = COALESCE($8, expires_at),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+db.AlertColumns,
		id, in.Title, in.Description, in.Source,
		in.Geometry != nil, geometryArg(in.Geometry), in.IsActive, in.ExpiresAt,
	)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	return a, nil
}

// Get returns an active alert.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	a, err := scanAlert(s.pool.QueryRow(ctx, "alert_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// List returns active alerts matching f, newest publication first.
func (s *Store) List(ctx context.Context, f Filter) ([]Alert, error) {
	var where db.Where
	where.AddRaw("is_active = true")
	if f.Region != "" {
		where.Add("? = ANY(region_tags)", f.Region)
	}
	if f.Severity != "" {
		where.Add("severity = ?", string(f.Severity))
	}
	if f.Source != "" {
		where.Add(`source ILIKE ? ESCAPE '\'`, "%"+escapeLike(f.Source)+"%")
	}
	if f.Start != nil {
		where.Add("published_at >= ?", *f.Start)
	}
	if f.End != nil {
		where.Add("published_at <= ?", *f.End)
	}
	if f.ExcludeExpired {
		where.AddRaw("(expires_at IS NULL OR expires_at > NOW())")
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+db.AlertColumns+" FROM alerts"+where.SQL()+" ORDER BY published_at DESC",
		where.Args()...,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	out := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var (
		a    Alert
		geom []byte
	)
	if err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.RegionTags, &a.Severity, &a.Source, &geom,
		&a.IsActive, &a.PublishedAt, &a.ExpiresAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if geom != nil {
		a.Geometry = json.RawMessage(geom)
	}
	return &a, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
