package repository

import (
	"context"

	"go-content-dashboard/internal/model"
)

type UserStore interface {
	Create(ctx context.Context, u model.User) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
}

type PostStore interface {
	List(ctx context.Context, filter model.PostFilter) ([]model.Post, error)
	FindByID(ctx context.Context, id string) (model.Post, error)
	Create(ctx context.Context, p model.Post) error
	Update(ctx context.Context, p model.Post) error
	Delete(ctx context.Context, id string) error
}

type EventStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.CalendarEvent, error)
	FindByID(ctx context.Context, id string) (model.CalendarEvent, error)
	Create(ctx context.Context, e model.CalendarEvent) error
	Update(ctx context.Context, e model.CalendarEvent) error
	Delete(ctx context.Context, id string) error
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error)
}

// Set bundles one implementation of every store.
type Set struct {
	Users  UserStore
	Posts  PostStore
	Events EventStore
	Audit  AuditStore
}
