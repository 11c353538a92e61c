package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-content-dashboard/internal/middleware"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/service"
)

type PostHandler struct {
	service *service.PostService
}

func NewPostHandler(service *service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("authorId")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.Analytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload model.PostInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.service.Create(r.Context(), identity, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload model.PostPatch
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.service.Update(r.Context(), identity, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Delete runs with optional auth; the service decides whether the caller
// must own the post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())

	if err := h.service.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Post deleted successfully"})
}
