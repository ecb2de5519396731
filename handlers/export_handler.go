package handlers

import (
	"net/http"

	"github.com/inventohq/festival-system/services"
)

type ExportHandler struct {
	exportService services.ExportService
}

func NewExportHandler(exportService services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportRegistrations обрабатывает POST /exports/registrations.
// Опциональный query-параметр event_id сужает выгрузку до события.
func (h *ExportHandler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")

	location, err := h.exportService.ExportRegistrations(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"location": location}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
