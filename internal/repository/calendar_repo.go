package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-content-dashboard/internal/metrics"
	"go-content-dashboard/internal/model"
)

type CalendarRepository struct {
	pool *pgxpool.Pool
}

func NewCalendarRepository(pool *pgxpool.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

func (r *CalendarRepository) ListByUser(ctx context.Context, userID string) ([]model.CalendarEvent, error) {
	if !validID(userID) {
		return []model.CalendarEvent{}, nil
	}
	defer metrics.ObserveStore(ctx, "calendar.list")()

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, date, user_id, created_at, updated_at
		 FROM calendar_events WHERE user_id = $1
		 ORDER BY date ASC, created_at ASC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	events := make([]model.CalendarEvent, 0)
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.User, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *CalendarRepository) FindByID(ctx context.Context, id string) (model.CalendarEvent, error) {
	if !validID(id) {
		return model.CalendarEvent{}, fmt.Errorf("find calendar event %q: %w", id, model.ErrEventNotFound)
	}
	defer metrics.ObserveStore(ctx, "calendar.find_by_id")()

	var e model.CalendarEvent
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, date, user_id, created_at, updated_at FROM calendar_events WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Date, &e.User, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CalendarEvent{}, fmt.Errorf("find calendar event %q: %w", id, model.ErrEventNotFound)
	}
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("find calendar event: %w", err)
	}
	return e, nil
}

func (r *CalendarRepository) Create(ctx context.Context, e model.CalendarEvent) error {
	defer metrics.ObserveStore(ctx, "calendar.create")()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO calendar_events (id, name, date, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Name, e.Date, e.User, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

func (r *CalendarRepository) Update(ctx context.Context, e model.CalendarEvent) error {
	defer metrics.ObserveStore(ctx, "calendar.update")()

	tag, err := r.pool.Exec(ctx,
		`UPDATE calendar_events SET name = $2, date = $3, updated_at = $4 WHERE id = $1`,
		e.ID, e.Name, e.Date, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update calendar event %q: %w", e.ID, model.ErrEventNotFound)
	}
	return nil
}

func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete calendar event %q: %w", id, model.ErrEventNotFound)
	}
	defer metrics.ObserveStore(ctx, "calendar.delete")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete calendar event %q: %w", id, model.ErrEventNotFound)
	}
	return nil
}
