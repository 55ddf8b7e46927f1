package guest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to guest records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new guest repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new guest record.
func (r *Repository) Create(ctx context.Context, firstName, lastName string) (Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO guests (id, first_name, last_name)
VALUES ($1, $2, $3)
RETURNING id, first_name, last_name, created_at, updated_at;`

	var g Guest
	err := r.pool.QueryRow(ctx, query, uuid.New(), firstName, lastName).Scan(
		&g.ID, &g.FirstName, &g.LastName, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return Guest{}, fmt.Errorf("create guest: %w", err)
	}
	return g, nil
}

// List returns all guest records.
func (r *Repository) List(ctx context.Context) ([]Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, first_name, last_name, created_at, updated_at
FROM guests
ORDER BY last_name, first_name;`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	var guests []Guest
	for rows.Next() {
		var g Guest
		if err := rows.Scan(&g.ID, &g.FirstName, &g.LastName, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guests: %w", err)
	}
	return guests, nil
}

// Update replaces the name fields and returns the updated record.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, firstName, lastName string) (Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE guests
SET first_name = $2, last_name = $3, updated_at = now()
WHERE id = $1
RETURNING id, first_name, last_name, created_at, updated_at;`

	var g Guest
	err := r.pool.QueryRow(ctx, query, id, firstName, lastName).Scan(
		&g.ID, &g.FirstName, &g.LastName, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guest{}, ErrGuestNotFound
		}
		return Guest{}, fmt.Errorf("update guest: %w", err)
	}
	return g, nil
}

// Delete removes a guest record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuestNotFound
	}
	return nil
}
