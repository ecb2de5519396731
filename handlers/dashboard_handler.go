package handlers

import (
	"net/http"

	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/services"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
	cache            *cache.Store
}

func NewDashboardHandler(dashboardService services.DashboardService, cacheStore *cache.Store) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, cache: cacheStore}
}

// Stats обрабатывает GET /dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.dashboardService.Stats()
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Occupancy обрабатывает GET /dashboard/occupancy.
func (h *DashboardHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	occupancy := h.dashboardService.Occupancy()
	if err := writeJSON(w, http.StatusOK, jsonResponse{"occupancy": occupancy}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Overview обрабатывает GET /dashboard/analytics/overview.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview := h.dashboardService.Overview()
	if overview == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"overview": overview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Detailed обрабатывает GET /dashboard/analytics/detailed.
func (h *DashboardHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	detailed := h.dashboardService.Detailed()
	if detailed == nil {
		notFoundResponse(w, r)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"detailed": detailed}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Refresh обрабатывает POST /dashboard/refresh: принудительный bulk
// refresh всех коллекций. Частичный провал — не ошибка запроса:
// отдаём, что не обновилось, остальное уже свежее.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.RefreshAll(r.Context()); err != nil {
		if writeErr := writeJSON(w, http.StatusOK, jsonResponse{
			"message": "refresh completed with failures",
			"error":   err.Error(),
		}, nil); writeErr != nil {
			serverErrorResponse(w, r, writeErr)
		}
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "refresh completed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
