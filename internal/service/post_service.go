package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/repository"
	"go-content-dashboard/pkg/apierror"
)

const (
	topPostsLimit   = 5
	pageViewDays    = 30
	pageViewMinimum = 500
	pageViewSpread  = 2000
)

type PostService struct {
	posts               repository.PostStore
	bus                 event.Bus
	deleteRequiresOwner bool
	now                 func() time.Time
}

type PostServiceOptions struct {
	// DeleteRequiresOwner applies the owner check to Delete as well.
	DeleteRequiresOwner bool
}

func NewPostService(posts repository.PostStore, bus event.Bus, opts PostServiceOptions) *PostService {
	return &PostService{
		posts:               posts,
		bus:                 bus,
		deleteRequiresOwner: opts.DeleteRequiresOwner,
		now:                 time.Now,
	}
}

func (s *PostService) DeleteRequiresOwner() bool {
	return s.deleteRequiresOwner
}

func (s *PostService) List(ctx context.Context, authorID string) ([]model.Post, error) {
	return s.posts.List(ctx, model.PostFilter{AuthorID: authorID})
}

// Analytics returns the top published posts. PageViews is placeholder chart
// data with no tracking behind it.
func (s *PostService) Analytics(ctx context.Context) (model.PostAnalytics, error) {
	top, err := s.posts.List(ctx, model.PostFilter{
		Status:  model.StatusPublished,
		ByViews: true,
		Limit:   topPostsLimit,
	})
	if err != nil {
		return model.PostAnalytics{}, err
	}

	analytics := model.PostAnalytics{
		TopPosts:  make([]model.TopPost, 0, len(top)),
		PageViews: make([]int, pageViewDays),
	}
	for _, p := range top {
		analytics.TopPosts = append(analytics.TopPosts, model.TopPost{Title: p.Title, Views: p.Views})
	}
	for i := range analytics.PageViews {
		analytics.PageViews[i] = pageViewMinimum + rand.IntN(pageViewSpread)
	}
	return analytics, nil
}

func (s *PostService) Get(ctx context.Context, id string) (model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return model.Post{}, notFound(err, model.ErrPostNotFound, "Post not found", id)
	}
	return post, nil
}

// Create stores a new post owned by the caller. Any author in the request is
// ignored.
func (s *PostService) Create(ctx context.Context, identity model.Identity, in model.PostInput) (model.Post, error) {
	if identity.UserID == "" {
		return model.Post{}, apierror.Unauthenticated("missing bearer token")
	}

	now := s.now().UTC()
	post := model.Post{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Author:    identity.UserID,
		Status:    model.StatusIdea,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if strings.TrimSpace(in.Status) != "" {
		post.Status = model.PostStatus(strings.TrimSpace(in.Status))
	}
	if in.Date.Present() && strings.TrimSpace(in.Date.Value) != "" {
		date, ok := parseDate(in.Date.Value)
		if !ok {
			return model.Post{}, apierror.Validation("date is invalid", "date")
		}
		post.Date = &date
	}
	if in.Views.Present() {
		post.Views = in.Views.Value
	}

	if err := validatePost(post); err != nil {
		return model.Post{}, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return model.Post{}, err
	}

	// Re-read for the author name; the insert itself already succeeded.
	if stored, err := s.posts.FindByID(ctx, post.ID); err == nil {
		post = stored
	}

	publish(s.bus, event.Event{
		Type:     event.TypePostCreated,
		Payload:  post,
		Resource: post.ID,
		ActorID:  identity.UserID,
	})
	return post, nil
}

// Update merges the keys present in patch into the caller's post.
func (s *PostService) Update(ctx context.Context, identity model.Identity, id string, patch model.PostPatch) (model.Post, error) {
	existing, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return model.Post{}, notFound(err, model.ErrPostNotFound, "Post not found", id)
	}
	if err := assertOwner(identity, existing); err != nil {
		return model.Post{}, err
	}

	updated, err := mergePost(existing, patch)
	if err != nil {
		return model.Post{}, err
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.posts.Update(ctx, updated); err != nil {
		return model.Post{}, notFound(err, model.ErrPostNotFound, "Post not found", id)
	}

	publish(s.bus, event.Event{
		Type:     event.TypePostUpdated,
		Payload:  updated,
		Resource: updated.ID,
		ActorID:  identity.UserID,
	})
	return updated, nil
}

// Delete removes a post. The owner check only runs when the service was built
// with DeleteRequiresOwner; otherwise identity may be empty.
func (s *PostService) Delete(ctx context.Context, identity model.Identity, id string) error {
	existing, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return notFound(err, model.ErrPostNotFound, "Post not found", id)
	}

	if s.deleteRequiresOwner {
		if identity.UserID == "" {
			return apierror.Unauthenticated("missing bearer token")
		}
		if err := assertOwner(identity, existing); err != nil {
			return err
		}
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return notFound(err, model.ErrPostNotFound, "Post not found", id)
	}

	publish(s.bus, event.Event{
		Type:     event.TypePostDeleted,
		Payload:  map[string]string{"id": id},
		Resource: id,
		ActorID:  identity.UserID,
	})
	return nil
}

func mergePost(p model.Post, patch model.PostPatch) (model.Post, error) {
	p.Date = cloneDate(p.Date)

	if patch.Title.Set {
		if patch.Title.Null {
			return model.Post{}, apierror.Validation("title is required", "title")
		}
		p.Title = strings.TrimSpace(patch.Title.Value)
	}
	if patch.Status.Set {
		if patch.Status.Null {
			return model.Post{}, apierror.Validation("status is invalid", "status")
		}
		p.Status = model.PostStatus(strings.TrimSpace(patch.Status.Value))
	}
	if patch.Date.Set {
		if patch.Date.Null || strings.TrimSpace(patch.Date.Value) == "" {
			p.Date = nil
		} else {
			date, ok := parseDate(patch.Date.Value)
			if !ok {
				return model.Post{}, apierror.Validation("date is invalid", "date")
			}
			p.Date = &date
		}
	}
	if patch.Views.Set {
		if patch.Views.Null {
			p.Views = 0
		} else {
			p.Views = patch.Views.Value
		}
	}

	if err := validatePost(p); err != nil {
		return model.Post{}, err
	}
	return p, nil
}

func validatePost(p model.Post) error {
	if p.Title == "" {
		return apierror.Validation("title is required", "title")
	}
	if !p.Status.Valid() {
		return apierror.Validation("status is invalid", string(p.Status))
	}
	if p.Views < 0 {
		return apierror.Validation("views must not be negative", "views")
	}
	return nil
}

func cloneDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
