package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inventohq/festival-system/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(registrationService services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// Begin обрабатывает POST /registrations/flows: открытие модалки.
func (h *RegistrationHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		EventID string `json:"event_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	flow, err := h.registrationService.Begin(r.Context(), input.EventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get обрабатывает GET /registrations/flows/{flowID}.
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	flow, err := h.registrationService.Get(chi.URLParam(r, "flowID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetTeamName обрабатывает PUT /registrations/flows/{flowID}/team-name.
func (h *RegistrationHandler) SetTeamName(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	flow, err := h.registrationService.SetTeamName(chi.URLParam(r, "flowID"), input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddMember обрабатывает POST /registrations/flows/{flowID}/members.
func (h *RegistrationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var input struct {
		InventoID string `json:"invento_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	flow, err := h.registrationService.AddMember(r.Context(), chi.URLParam(r, "flowID"), input.InventoID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveMember обрабатывает DELETE /registrations/flows/{flowID}/members/{inventoID}.
func (h *RegistrationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	flow, err := h.registrationService.RemoveMember(chi.URLParam(r, "flowID"), chi.URLParam(r, "inventoID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetOfficial обрабатывает PUT /registrations/flows/{flowID}/official.
func (h *RegistrationHandler) SetOfficial(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Official      bool   `json:"official"`
		ContingentKey string `json:"contingent_key"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	flow, err := h.registrationService.SetOfficial(chi.URLParam(r, "flowID"), input.Official, input.ContingentKey)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Submit обрабатывает POST /registrations/flows/{flowID}/submit.
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	flow, err := h.registrationService.Submit(r.Context(), chi.URLParam(r, "flowID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CompletePayment обрабатывает POST /registrations/flows/{flowID}/payment:
// completion callback платёжного виджета.
func (h *RegistrationHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var proof services.PaymentProof
	if err := readJSON(w, r, &proof); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	flow, err := h.registrationService.CompletePayment(r.Context(), chi.URLParam(r, "flowID"), proof)
	if err != nil {
		// CommitFailed приходит вместе с flow: клиенту нужно показать
		// и ошибку, и состояние сверки.
		if flow != nil {
			if writeErr := writeJSON(w, http.StatusConflict, jsonResponse{
				"error": err.Error(),
				"flow":  flow,
			}, nil); writeErr != nil {
				serverErrorResponse(w, r, writeErr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"flow": flow}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Close обрабатывает DELETE /registrations/flows/{flowID}: сброс
// всего transient-состояния потока.
func (h *RegistrationHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.registrationService.Close(chi.URLParam(r, "flowID"))
	w.WriteHeader(http.StatusNoContent)
}
