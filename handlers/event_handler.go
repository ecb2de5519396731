package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/services"
)

type EventHandler struct {
	eventService services.EventService
}

func NewEventHandler(eventService services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// List обрабатывает GET /events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events := h.eventService.List()
	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID обрабатывает GET /events/{eventID}.
func (h *EventHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	event, err := h.eventService.GetByID(eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update обрабатывает PATCH /events/{eventID}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var patch apiclient.EventPatch
	if err := readJSON(w, r, &patch); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.eventService.Update(r.Context(), eventID, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadPoster обрабатывает POST /events/{eventID}/poster.
func (h *EventHandler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	contentType := r.Header.Get("Content-Type")
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB

	url, err := h.eventService.UploadPoster(r.Context(), eventID, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"poster_url": url}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
