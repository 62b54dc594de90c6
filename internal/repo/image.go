package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmarukhin/tasknote-api/internal/model"
)

// ImageRepo is the persisted half of the image registry: one row per
// distinct content hash, shared by every task that references it.
type ImageRepo struct {
	q querier
}

func NewImageRepo(q querier) *ImageRepo {
	return &ImageRepo{q: q}
}

func (r *ImageRepo) Create(ctx context.Context, img model.Image) (model.Image, error) {
	img.ID = uuid.NewString()
	img.CreatedAt = time.Now().UTC()

	_, err := r.q.Exec(ctx, `
		INSERT INTO images (id, hash, storage_key, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, img.ID, img.Hash, img.Key, img.URL, img.CreatedAt)
	return img, err
}

func (r *ImageRepo) FindByHashes(ctx context.Context, hashes []string) ([]model.Image, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT id, hash, storage_key, url, created_at
		FROM images
		WHERE hash = ANY($1)
	`, hashes)
}

func (r *ImageRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT id, hash, storage_key, url, created_at
		FROM images
		WHERE id = ANY($1)
	`, ids)
}

func (r *ImageRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, "DELETE FROM images WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrphans returns registry entries no task references anymore.
// Reported by the sweeper for operator visibility, never auto-deleted.
func (r *ImageRepo) ListOrphans(ctx context.Context) ([]model.Image, error) {
	return r.query(ctx, `
		SELECT i.id, i.hash, i.storage_key, i.url, i.created_at
		FROM images i
		WHERE NOT EXISTS (
			SELECT 1 FROM tasks t WHERE i.id = ANY(t.image_ids)
		)
	`)
}

func (r *ImageRepo) query(ctx context.Context, sql string, args ...any) ([]model.Image, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]model.Image, 0)
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.Hash, &img.Key, &img.URL, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
