package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-content-dashboard/internal/model"
)

// memoryDB is the shared state behind the in-memory stores. Posts need the
// users table to fill in author names, so all stores share one lock.
type memoryDB struct {
	mu     sync.RWMutex
	users  map[string]model.User
	posts  map[string]model.Post
	events map[string]model.CalendarEvent
	audit  []model.AuditEntry
}

// NewMemory returns stores that keep everything in process memory. Used
// when no DATABASE_URL is configured and by the tests.
func NewMemory() Set {
	db := &memoryDB{
		users:  map[string]model.User{},
		posts:  map[string]model.Post{},
		events: map[string]model.CalendarEvent{},
	}
	return Set{
		Users:  &MemoryUserRepository{db: db},
		Posts:  &MemoryPostRepository{db: db},
		Events: &MemoryCalendarRepository{db: db},
		Audit:  &MemoryAuditRepository{db: db},
	}
}

type MemoryUserRepository struct{ db *memoryDB }

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w", model.ErrEmailTaken)
		}
	}
	r.db.users[u.ID] = u
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("find user %q: %w", id, model.ErrUserNotFound)
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("find user by email: %w", model.ErrUserNotFound)
}

type MemoryPostRepository struct{ db *memoryDB }

func (r *MemoryPostRepository) List(_ context.Context, filter model.PostFilter) ([]model.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	authorID := strings.TrimSpace(filter.AuthorID)
	posts := make([]model.Post, 0, len(r.db.posts))
	for _, p := range r.db.posts {
		if authorID != "" && p.Author != authorID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		posts = append(posts, r.withAuthorLocked(clonePost(p)))
	}

	if filter.ByViews {
		sort.Slice(posts, func(i, j int) bool {
			if posts[i].Views != posts[j].Views {
				return posts[i].Views > posts[j].Views
			}
			return newerFirst(posts[i], posts[j])
		})
	} else {
		SortPostsByDate(posts)
	}

	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (r *MemoryPostRepository) FindByID(_ context.Context, id string) (model.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.posts[id]
	if !ok {
		return model.Post{}, fmt.Errorf("find post %q: %w", id, model.ErrPostNotFound)
	}
	return r.withAuthorLocked(clonePost(p)), nil
}

func (r *MemoryPostRepository) Create(_ context.Context, p model.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p.AuthorName = ""
	r.db.posts[p.ID] = clonePost(p)
	return nil
}

func (r *MemoryPostRepository) Update(_ context.Context, p model.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.posts[p.ID]
	if !ok {
		return fmt.Errorf("update post %q: %w", p.ID, model.ErrPostNotFound)
	}
	existing.Title = p.Title
	existing.Status = p.Status
	existing.Date = cloneTime(p.Date)
	existing.Views = p.Views
	existing.UpdatedAt = p.UpdatedAt
	r.db.posts[p.ID] = existing
	return nil
}

func (r *MemoryPostRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.posts[id]; !ok {
		return fmt.Errorf("delete post %q: %w", id, model.ErrPostNotFound)
	}
	delete(r.db.posts, id)
	return nil
}

func (r *MemoryPostRepository) withAuthorLocked(p model.Post) model.Post {
	if u, ok := r.db.users[p.Author]; ok {
		p.AuthorName = u.Name
	}
	return p
}

type MemoryCalendarRepository struct{ db *memoryDB }

func (r *MemoryCalendarRepository) ListByUser(_ context.Context, userID string) ([]model.CalendarEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	events := make([]model.CalendarEvent, 0)
	for _, e := range r.db.events {
		if e.User == userID {
			events = append(events, e)
		}
	}
	SortEventsByDate(events)
	return events, nil
}

func (r *MemoryCalendarRepository) FindByID(_ context.Context, id string) (model.CalendarEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.events[id]
	if !ok {
		return model.CalendarEvent{}, fmt.Errorf("find calendar event %q: %w", id, model.ErrEventNotFound)
	}
	return e, nil
}

func (r *MemoryCalendarRepository) Create(_ context.Context, e model.CalendarEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.events[e.ID] = e
	return nil
}

func (r *MemoryCalendarRepository) Update(_ context.Context, e model.CalendarEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.events[e.ID]
	if !ok {
		return fmt.Errorf("update calendar event %q: %w", e.ID, model.ErrEventNotFound)
	}
	existing.Name = e.Name
	existing.Date = e.Date
	existing.UpdatedAt = e.UpdatedAt
	r.db.events[e.ID] = existing
	return nil
}

func (r *MemoryCalendarRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[id]; !ok {
		return fmt.Errorf("delete calendar event %q: %w", id, model.ErrEventNotFound)
	}
	delete(r.db.events, id)
	return nil
}

type MemoryAuditRepository struct{ db *memoryDB }

func (r *MemoryAuditRepository) Log(_ context.Context, entry model.AuditEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.audit = append(r.db.audit, entry)
	return nil
}

func (r *MemoryAuditRepository) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	limit := clampAuditLimit(query.Limit)
	entries := make([]model.AuditEntry, 0)
	for i := len(r.db.audit) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.db.audit[i].ActorID == query.ActorID {
			entries = append(entries, r.db.audit[i])
		}
	}
	return entries, nil
}

// SortPostsByDate orders posts by date descending with undated posts last,
// then newest created first, then id, matching the SQL ORDER BY.
func SortPostsByDate(posts []model.Post) {
	sort.Slice(posts, func(i, j int) bool {
		left, right := posts[i].Date, posts[j].Date
		switch {
		case left == nil && right != nil:
			return false
		case left != nil && right == nil:
			return true
		case left != nil && right != nil && !left.Equal(*right):
			return left.After(*right)
		}
		return newerFirst(posts[i], posts[j])
	})
}

// SortEventsByDate orders events by date ascending, then creation, then id.
func SortEventsByDate(events []model.CalendarEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}

func newerFirst(a model.Post, b model.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func clonePost(p model.Post) model.Post {
	p.Date = cloneTime(p.Date)
	return p
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
