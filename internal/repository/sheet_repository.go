package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"devnotes/api/internal/models"
)

var ErrSheetNotFound = errors.New("sheet not found")

type SheetRepository struct {
	pool *pgxpool.Pool
}

func NewSheetRepository(pool *pgxpool.Pool) *SheetRepository {
	return &SheetRepository{pool: pool}
}

func (r *SheetRepository) Create(ctx context.Context, sheet models.Sheet) error {
	const query = `
		INSERT INTO sheets (id, title, category, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, sheet.ID, sheet.Title, sheet.Category, sheet.Content)
	return err
}

func (r *SheetRepository) Update(ctx context.Context, sheet models.Sheet) error {
	const query = `
		UPDATE sheets
		SET title = $2, category = $3, content = $4, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, sheet.ID, sheet.Title, sheet.Category, sheet.Content)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSheetNotFound
	}
	return nil
}

func (r *SheetRepository) GetByID(ctx context.Context, id string) (models.Sheet, error) {
	const query = `
		SELECT id, title, category, content, created_at, updated_at
		FROM sheets WHERE id = $1
	`

	var sheet models.Sheet
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&sheet.ID,
		&sheet.Title,
		&sheet.Category,
		&sheet.Content,
		&sheet.CreatedAt,
		&sheet.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Sheet{}, ErrSheetNotFound
		}
		return models.Sheet{}, err
	}
	return sheet, nil
}

func (r *SheetRepository) List(ctx context.Context, category string, limit, offset int) ([]models.Sheet, error) {
	const query = `
		SELECT id, title, category, content, created_at, updated_at
		FROM sheets
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []models.Sheet
	for rows.Next() {
		var sheet models.Sheet
		if err := rows.Scan(
			&sheet.ID,
			&sheet.Title,
			&sheet.Category,
			&sheet.Content,
			&sheet.CreatedAt,
			&sheet.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, rows.Err()
}

func (r *SheetRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sheets WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSheetNotFound
	}
	return nil
}
