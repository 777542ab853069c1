package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"devnotes/api/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

type FileRepository struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

const fileColumns = `id, user_id, name, mime_type, size_bytes, rel_path, batch, created_at`

func scanFile(row pgx.Row) (models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.MimeType,
		&file.SizeBytes,
		&file.RelPath,
		&file.Batch,
		&file.CreatedAt,
	)
	return file, err
}

func (r *FileRepository) Create(ctx context.Context, file models.File) error {
	const query = `
		INSERT INTO files (
			id, user_id, name, mime_type, size_bytes, rel_path, batch, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		file.ID,
		file.UserID,
		file.Name,
		file.MimeType,
		file.SizeBytes,
		file.RelPath,
		file.Batch,
	)
	return err
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (models.File, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM files WHERE id = $1
	`

	file, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.File{}, ErrFileNotFound
		}
		return models.File{}, err
	}
	return file, nil
}

func (r *FileRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.File, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM files
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryFiles(ctx, query, userID, limit, offset)
}

func (r *FileRepository) ListAll(ctx context.Context, limit, offset int) ([]models.File, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM files
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryFiles(ctx, query, limit, offset)
}

func (r *FileRepository) queryFiles(ctx context.Context, query string, args ...any) ([]models.File, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// Delete removes the metadata record unconditionally; removing the bytes on
// disk happens before this and is best-effort.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM files WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&count)
	return count, err
}

// RecentBatches lists the newest non-empty batch labels for the admin
// dashboard.
func (r *FileRepository) RecentBatches(ctx context.Context, limit int) ([]string, error) {
	const query = `
		SELECT batch FROM files
		WHERE batch != ''
		GROUP BY batch
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []string
	for rows.Next() {
		var batch string
		if err := rows.Scan(&batch); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}
