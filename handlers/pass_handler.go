package handlers

import (
	"net/http"

	"github.com/inventohq/festival-system/services"
)

type PassHandler struct {
	passService services.PassService
}

func NewPassHandler(passService services.PassService) *PassHandler {
	return &PassHandler{passService: passService}
}

// Issue обрабатывает GET /passes/mine: пасс текущей сессии.
func (h *PassHandler) Issue(w http.ResponseWriter, r *http.Request) {
	payload, err := h.passService.Issue(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pass": payload}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Validate обрабатывает POST /passes/validate: скан QR валидатором.
func (h *PassHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Payload string `json:"payload"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	validation, err := h.passService.Validate(r.Context(), input.Payload)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, validation, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
