package media

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

const objectColumns = `id, filename, original_filename, content_type, size_bytes, uploader, approved, is_preview, original_id, preview_state, created_at, updated_at`

// Repository provides access to the media metadata index.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new media repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanObject(row pgx.Row) (Object, error) {
	var o Object
	err := row.Scan(
		&o.ID,
		&o.Filename,
		&o.OriginalFilename,
		&o.ContentType,
		&o.SizeBytes,
		&o.Uploader,
		&o.Approved,
		&o.IsPreview,
		&o.OriginalID,
		&o.PreviewState,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

// Create inserts a metadata record for a new object.
func (r *Repository) Create(ctx context.Context, o Object) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO media_objects (id, filename, original_filename, content_type, size_bytes, uploader, approved, is_preview, original_id, preview_state)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + objectColumns + `;`

	stored, err := scanObject(r.pool.QueryRow(ctx, query,
		o.ID,
		o.Filename,
		o.OriginalFilename,
		o.ContentType,
		o.SizeBytes,
		o.Uploader,
		o.Approved,
		o.IsPreview,
		o.OriginalID,
		o.PreviewState,
	))
	if err != nil {
		return Object{}, fmt.Errorf("create media object: %w", err)
	}
	return stored, nil
}

// Get fetches a single metadata record.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + objectColumns + ` FROM media_objects WHERE id = $1;`

	o, err := scanObject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Object{}, ErrMediaNotFound
		}
		return Object{}, fmt.Errorf("get media object: %w", err)
	}
	return o, nil
}

// List returns every metadata record, newest first.
func (r *Repository) List(ctx context.Context) ([]Object, error) {
	query := `SELECT ` + objectColumns + ` FROM media_objects ORDER BY created_at DESC;`
	return r.queryObjects(ctx, query)
}

// ListApproved returns approved originals, optionally filtered to a content
// type prefix ("image" or "video").
func (r *Repository) ListApproved(ctx context.Context, kind string) ([]Object, error) {
	query := `
SELECT ` + objectColumns + `
FROM media_objects
WHERE approved = true AND is_preview = false`

	args := []any{}
	if kind != "" {
		query += ` AND content_type LIKE $1`
		args = append(args, kind+"/%")
	}
	query += ` ORDER BY created_at DESC;`

	return r.queryObjects(ctx, query, args...)
}

// Approve sets the approved flag and returns the updated record. Repeating
// the call is a no-op flag set.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE media_objects
SET approved = true, updated_at = now()
WHERE id = $1
RETURNING ` + objectColumns + `;`

	o, err := scanObject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Object{}, ErrMediaNotFound
		}
		return Object{}, fmt.Errorf("approve media object: %w", err)
	}
	return o, nil
}

// Delete removes an original and any previews referencing it, returning all
// removed records so the caller can clean up blob payloads.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	doomed, err := r.queryObjects(ctx,
		`SELECT `+objectColumns+` FROM media_objects WHERE id = $1 OR original_id = $1;`, id)
	if err != nil {
		return nil, err
	}

	found := false
	for _, o := range doomed {
		if o.ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrMediaNotFound
	}

	// previews go with the original via ON DELETE CASCADE
	if _, err := r.pool.Exec(ctx, `DELETE FROM media_objects WHERE id = $1;`, id); err != nil {
		return nil, fmt.Errorf("delete media object: %w", err)
	}
	return doomed, nil
}

// PreviewFor returns the preview object linked to the given original.
func (r *Repository) PreviewFor(ctx context.Context, originalID uuid.UUID) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + objectColumns + `
FROM media_objects
WHERE original_id = $1 AND is_preview = true
ORDER BY created_at
LIMIT 1;`

	o, err := scanObject(r.pool.QueryRow(ctx, query, originalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Object{}, ErrMediaNotFound
		}
		return Object{}, fmt.Errorf("find preview: %w", err)
	}
	return o, nil
}

// ClaimPreview atomically marks an original as having derivation in progress.
// Returns false when another worker holds the claim or a preview outcome is
// already recorded.
func (r *Repository) ClaimPreview(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE media_objects
SET preview_state = $2, updated_at = now()
WHERE id = $1 AND is_preview = false AND preview_state IN ($3, $4);`

	tag, err := r.pool.Exec(ctx, query, id, PreviewProcessing, PreviewPending, PreviewFailed)
	if err != nil {
		return false, fmt.Errorf("claim preview: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetPreviewState records the outcome of a derivation attempt.
func (r *Repository) SetPreviewState(ctx context.Context, id uuid.UUID, state string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `UPDATE media_objects SET preview_state = $2, updated_at = now() WHERE id = $1;`
	if _, err := r.pool.Exec(ctx, query, id, state); err != nil {
		return fmt.Errorf("set preview state: %w", err)
	}
	return nil
}

// Exists reports whether a metadata record is still present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM media_objects WHERE id = $1);`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check media object existence: %w", err)
	}
	return exists, nil
}

func (r *Repository) queryObjects(ctx context.Context, query string, args ...any) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query media objects: %w", err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media object: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media objects: %w", err)
	}
	return objects, nil
}
