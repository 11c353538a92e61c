package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/service"
)

type CalendarHandler struct {
	service *service.CalendarService
}

func NewCalendarHandler(service *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	events, err := h.service.List(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload model.EventInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.service.Create(r.Context(), identity, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload model.EventPatch
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.service.Update(r.Context(), identity, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Event deleted successfully"})
}
