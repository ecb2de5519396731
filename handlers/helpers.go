package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя и API-клиента
// в HTTP-ответы. Клиенты различают редиректы по телу ответа:
// "login" — на логин, "onboarding" — на онбординг.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiclient.APIError

	switch {
	// Сессия недействительна: веб-клиент уходит на логин.
	case errors.Is(err, apiclient.ErrSessionExpired),
		errors.Is(err, services.ErrAuthenticationRequired):
		if writeErr := writeJSON(w, http.StatusUnauthorized, jsonResponse{
			"error":    err.Error(),
			"redirect": "login",
		}, nil); writeErr != nil {
			slog.Error("failed to write redirect response", slog.Any("error", writeErr))
		}

	// Профиль не дособран: редирект на онбординг, а не ошибка.
	case errors.Is(err, apiclient.ErrOnboardingIncomplete):
		if writeErr := writeJSON(w, http.StatusForbidden, jsonResponse{
			"error":    err.Error(),
			"redirect": "onboarding",
		}, nil); writeErr != nil {
			slog.Error("failed to write redirect response", slog.Any("error", writeErr))
		}

	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())

	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrEventAccessDenied):
		forbiddenResponse(w, r, err.Error())

	// Валидации воркфлоу: inline-ошибки, состояние не изменилось.
	case errors.Is(err, services.ErrSquadIncomplete),
		errors.Is(err, services.ErrDuplicateMember),
		errors.Is(err, services.ErrMemberIsLeader),
		errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrContingentKeyRequired),
		errors.Is(err, services.ErrOfficialOnlyEvent),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPassPolicy),
		errors.Is(err, services.ErrPaymentProofMissing),
		errors.Is(err, apiclient.ErrInvalidKey):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrRegistrationsClosed),
		errors.Is(err, services.ErrEventClosed),
		errors.Is(err, services.ErrPassesClosed):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrInvalidFlowState):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrFlowNotFound),
		errors.Is(err, apiclient.ErrUserNotFound):
		notFoundResponse(w, r)

	// Бэкенд сам назначил статус: пробрасываем его сообщение как есть.
	case errors.As(err, &apiErr):
		errorResponse(w, r, apiErr.Status, apiErr.Message)

	default:
		serverErrorResponse(w, r, err)
	}
}
