package handlers

import (
	"context"
	"net/http"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginAdmin обрабатывает POST /auth/admins/login.
func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.authService.LoginAdmin)
}

// LoginVolunteer обрабатывает POST /auth/volunteers/login.
func (h *AuthHandler) LoginVolunteer(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.authService.LoginVolunteer)
}

func (h *AuthHandler) login(
	w http.ResponseWriter,
	r *http.Request,
	exchange func(context.Context, models.Credentials) (*models.Session, string, error),
) {
	var creds models.Credentials
	if err := readJSON(w, r, &creds); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sess, token, err := exchange(r.Context(), creds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"token":   token,
		"session": sess,
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := apiclient.SessionFrom(r.Context())
	if sess == nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.authService.Logout(r.Context(), sess.InventoID); err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "logged out"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Me обрабатывает GET /auth/me: текущая сессия для инициализации
// клиентского auth-контекста.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := apiclient.SessionFrom(r.Context())
	if sess == nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": sess}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
