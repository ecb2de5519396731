package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить Origin доменами фронтенда перед продом.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeDashboard обрабатывает GET /ws/dashboard: общая комната
// с уведомлениями о рефрешах кэша.
func (h *WebSocketHandler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, cache.DashboardRoom)
}

// ServeEvent обрабатывает GET /ws/events/{eventID}: комната одного
// события для экранов заполненности.
func (h *WebSocketHandler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		http.Error(w, "Missing eventID", http.StatusBadRequest)
		return
	}
	h.serve(w, r, "event_"+eventID)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader сам отправил HTTP-ошибку клиенту.
		slog.Warn("websocket upgrade failed",
			slog.String("room", roomID), slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: roomID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
