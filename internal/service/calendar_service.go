package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/repository"
	"go-content-dashboard/pkg/apierror"
)

// CalendarService scopes every operation to the caller. Someone else's event
// is reported as missing, never as forbidden.
type CalendarService struct {
	events repository.EventStore
	bus    event.Bus
	now    func() time.Time
}

func NewCalendarService(events repository.EventStore, bus event.Bus) *CalendarService {
	return &CalendarService{events: events, bus: bus, now: time.Now}
}

func (s *CalendarService) List(ctx context.Context, identity model.Identity) ([]model.CalendarEvent, error) {
	if identity.UserID == "" {
		return nil, apierror.Unauthenticated("missing bearer token")
	}
	return s.events.ListByUser(ctx, identity.UserID)
}

func (s *CalendarService) Create(ctx context.Context, identity model.Identity, in model.EventInput) (model.CalendarEvent, error) {
	if identity.UserID == "" {
		return model.CalendarEvent{}, apierror.Unauthenticated("missing bearer token")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.CalendarEvent{}, apierror.Validation("name is required", "name")
	}
	if strings.TrimSpace(in.Date) == "" {
		return model.CalendarEvent{}, apierror.Validation("date is required", "date")
	}
	date, ok := parseDate(in.Date)
	if !ok {
		return model.CalendarEvent{}, apierror.Validation("date is invalid", "date")
	}

	now := s.now().UTC()
	e := model.CalendarEvent{
		ID:        uuid.NewString(),
		Name:      name,
		Date:      date,
		User:      identity.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return model.CalendarEvent{}, err
	}

	s.publish(event.TypeEventCreated, e.ID, e, identity)
	return e, nil
}

func (s *CalendarService) Update(ctx context.Context, identity model.Identity, id string, patch model.EventPatch) (model.CalendarEvent, error) {
	e, err := s.owned(ctx, identity, id)
	if err != nil {
		return model.CalendarEvent{}, err
	}

	if patch.Name.Set {
		name := strings.TrimSpace(patch.Name.Value)
		if patch.Name.Null || name == "" {
			return model.CalendarEvent{}, apierror.Validation("name is required", "name")
		}
		e.Name = name
	}
	if patch.Date.Set {
		if patch.Date.Null || strings.TrimSpace(patch.Date.Value) == "" {
			return model.CalendarEvent{}, apierror.Validation("date is required", "date")
		}
		date, ok := parseDate(patch.Date.Value)
		if !ok {
			return model.CalendarEvent{}, apierror.Validation("date is invalid", "date")
		}
		e.Date = date
	}
	e.UpdatedAt = s.now().UTC()

	if err := s.events.Update(ctx, e); err != nil {
		return model.CalendarEvent{}, notFound(err, model.ErrEventNotFound, "Event not found", id)
	}

	s.publish(event.TypeEventUpdated, e.ID, e, identity)
	return e, nil
}

func (s *CalendarService) Delete(ctx context.Context, identity model.Identity, id string) error {
	e, err := s.owned(ctx, identity, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return notFound(err, model.ErrEventNotFound, "Event not found", id)
	}

	s.publish(event.TypeEventDeleted, e.ID, map[string]string{"id": e.ID}, identity)
	return nil
}

// owned loads an event and hides it unless the caller owns it.
func (s *CalendarService) owned(ctx context.Context, identity model.Identity, id string) (model.CalendarEvent, error) {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return model.CalendarEvent{}, notFound(err, model.ErrEventNotFound, "Event not found", id)
	}
	if err := assertOwner(identity, e); err != nil {
		return model.CalendarEvent{}, apierror.NotFound(model.ErrEventNotFound, "Event not found", id)
	}
	return e, nil
}

// Calendar events are only ever delivered to their owner.
func (s *CalendarService) publish(typ event.Type, resource string, payload any, identity model.Identity) {
	publish(s.bus, event.Event{
		Type:     typ,
		Payload:  payload,
		Resource: resource,
		ActorID:  identity.UserID,
		Audience: identity.UserID,
	})
}
