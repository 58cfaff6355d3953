package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prepwise/prepwise-api/internal/db"
)

const (
	uniqueViolation = "23505"
	tokenConstraint = "devices_token_key"
)

// Store persists devices in Postgres.
type Store struct {
	pool *db.Pool
}

// NewStore creates a Store on pool.
func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Register inserts owner's device or, when owner already holds the token,
// reactivates it and refreshes last_used. A token held by a different owner
// yields ErrTokenTaken.
func (s *Store) Register(ctx context.Context, owner uuid.UUID, r Registration) (*Device, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO devices (owner_id, token, platform, device_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, token) DO UPDATE SET
			platform    = EXCLUDED.platform,
			device_name = COALESCE(EXCLUDED.device_name, devices.device_name),
			is_active   = TRUE,
			last_used   = NOW()
		RETURNING `+db.DeviceColumns,
		owner, r.Token, string(r.Platform), r.DeviceName,
	)
	d, err := scanDevice(row)
	if isTokenConflict(err) {
		return nil, ErrTokenTaken
	}
	if err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return d, nil
}

// Get returns owner's device.
func (s *Store) Get(ctx context.Context, owner, id uuid.UUID) (*Device, error) {
	return s.get(ctx, "device_by_id", id, owner)
}

// GetAny returns a device regardless of owner. Used by operator tooling.
func (s *Store) GetAny(ctx context.Context, id uuid.UUID) (*Device, error) {
	return s.get(ctx, "device_by_id_any", id)
}

func (s *Store) get(ctx context.Context, stmt string, args ...any) (*Device, error) {
	d, err := scanDevice(s.pool.QueryRow(ctx, stmt, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// ListByOwner returns owner's devices, most recently used first.
func (s *Store) ListByOwner(ctx context.Context, owner uuid.UUID) ([]Device, error) {
	return s.list(ctx, "devices_by_owner", owner)
}

// ListActive returns every active device.
func (s *Store) ListActive(ctx context.Context) ([]Device, error) {
	return s.list(ctx, "active_devices")
}

func (s *Store) list(ctx context.Context, stmt string, args ...any) ([]Device, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	out := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Touch refreshes last_used on owner's device.
func (s *Store) Touch(ctx context.Context, owner, id uuid.UUID) (*Device, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE devices SET last_used = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+db.DeviceColumns, id, owner)
	d, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("touch device: %w", err)
	}
	return d, nil
}

// Deactivate marks owner's device inactive. Devices are never deleted.
func (s *Store) Deactivate(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE devices SET is_active = false WHERE id = $1 AND owner_id = $2", id, owner)
	if err != nil {
		return fmt.Errorf("deactivate device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveTokens returns the distinct tokens of every active device.
func (s *Store) ActiveTokens(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "active_device_tokens")
	if err != nil {
		return nil, fmt.Errorf("list active tokens: %w", err)
	}
	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan active tokens: %w", err)
	}
	return tokens, nil
}

// DeactivateTokens marks every active device holding one of tokens inactive
// and returns how many were changed.
func (s *Store) DeactivateTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "deactivate_device_tokens", tokens)
	if err != nil {
		return 0, fmt.Errorf("deactivate tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.Token, &d.Platform, &d.DeviceName,
		&d.IsActive, &d.LastUsed, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func isTokenConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == tokenConstraint
}
