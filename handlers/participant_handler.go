package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(participantService services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// List обрабатывает GET /participants.
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	participants := h.participantService.List()
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type statusInput struct {
	Status models.ParticipantStatus `json:"status"`
}

type attendanceInput struct {
	Attended bool `json:"attended"`
}

// UpdateStatus обрабатывает PATCH /events/{eventID}/participants/{inventoID}/status.
func (h *ParticipantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	inventoID := chi.URLParam(r, "inventoID")

	var input statusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.ChangeStatus(r.Context(), eventID, inventoID, input.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "status updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateAttendance обрабатывает PATCH /events/{eventID}/participants/{inventoID}/attendance.
func (h *ParticipantHandler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	inventoID := chi.URLParam(r, "inventoID")

	var input attendanceInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.ChangeAttendance(r.Context(), eventID, inventoID, input.Attended); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "attendance updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateTeamStatus обрабатывает PATCH /events/{eventID}/teams/{teamName}/status.
func (h *ParticipantHandler) UpdateTeamStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	teamName := chi.URLParam(r, "teamName")

	var input statusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.ChangeTeamStatus(r.Context(), eventID, teamName, input.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "team status updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateTeamMemberAttendance обрабатывает
// PATCH /events/{eventID}/teams/{teamName}/members/{inventoID}/attendance.
func (h *ParticipantHandler) UpdateTeamMemberAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	teamName := chi.URLParam(r, "teamName")
	inventoID := chi.URLParam(r, "inventoID")

	var input attendanceInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.ChangeTeamMemberAttendance(r.Context(), eventID, teamName, inventoID, input.Attended); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "member attendance updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
