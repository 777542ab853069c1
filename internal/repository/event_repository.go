package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"devnotes/api/internal/models"
)

// MaxEventQueryLimit bounds a single audit query so reporting cannot drag
// the whole table over the wire.
const MaxEventQueryLimit = 1000

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Insert(ctx context.Context, event models.Event) error {
	const query = `
		INSERT INTO events (id, type, user_id, email, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.UserID,
		event.Email,
		event.Metadata,
	)
	return err
}

func (r *EventRepository) List(ctx context.Context, typeFilter string, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > MaxEventQueryLimit {
		limit = MaxEventQueryLimit
	}

	const query = `
		SELECT id, type, user_id, email, metadata, created_at
		FROM events
		WHERE ($1 = '' OR type = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, typeFilter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.UserID,
			&event.Email,
			&event.Metadata,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *EventRepository) CountSince(ctx context.Context, eventType models.EventType, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM events WHERE type = $1 AND created_at >= $2`

	var count int64
	err := r.pool.QueryRow(ctx, query, eventType, since).Scan(&count)
	return count, err
}

func (r *EventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM events WHERE created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
