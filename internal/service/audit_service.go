package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/repository"
	"go-content-dashboard/pkg/apierror"
)

type AuditService struct {
	store repository.AuditStore
}

func NewAuditService(store repository.AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Start subscribes to bus before returning, so no event published afterwards
// is missed, then records events until ctx is cancelled. The returned channel
// is closed once the recorder has stopped.
func (s *AuditService) Start(ctx context.Context, bus event.Bus) <-chan struct{} {
	events, unsubscribe := bus.SubscribeLossless()
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer unsubscribe()
		s.run(ctx, events)
	}()

	return stopped
}

func (s *AuditService) run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			// The request that published e may already be gone.
			recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := s.Record(recordCtx, e); err != nil {
				slog.Error("failed to record audit entry", "type", e.Type, "resource", e.Resource, "error", err)
			}
			cancel()
		}
	}
}

// Record persists e. Events without an actor are not attributable and are
// skipped.
func (s *AuditService) Record(ctx context.Context, e event.Event) error {
	if s == nil || e.ActorID == "" {
		return nil
	}

	occurredAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		occurredAt = ts.UTC()
	}

	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	return s.store.Log(ctx, model.AuditEntry{
		ID:         id,
		Action:     string(e.Type),
		ActorID:    e.ActorID,
		Resource:   e.Resource,
		OccurredAt: occurredAt,
	})
}

// Query returns the caller's own entries, newest first.
func (s *AuditService) Query(ctx context.Context, identity model.Identity, limit int) ([]model.AuditEntry, error) {
	if identity.UserID == "" {
		return nil, apierror.Unauthenticated("missing bearer token")
	}
	return s.store.Query(ctx, model.AuditQuery{ActorID: identity.UserID, Limit: limit})
}
