package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *brackets.Hub
	room     string
	service  services.TournamentService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler: allowedOrigins пустой или содержит "*" - разрешены все источники.
func NewWebSocketHandler(hub *brackets.Hub, room string, tournamentService services.TournamentService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:     hub,
		room:    room,
		service: tournamentService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
		logger: logger,
	}
}

// ServeWs подписывает клиента на события турнира.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: h.room,
	}
	if !h.hub.Join(client) {
		conn.Close()
		return
	}
	h.sendSnapshot(r, client)

	go client.WritePump()
	go client.ReadPump()
}

// sendSnapshot отдаёт новому зрителю текущее состояние, чтобы не ждать следующего события.
func (h *WebSocketHandler) sendSnapshot(r *http.Request, client *brackets.Client) {
	state, err := h.service.State(r.Context())
	if err != nil {
		if !errors.Is(err, services.ErrTournamentNotFound) {
			h.logger.Error("failed to load snapshot for websocket client", slog.Any("error", err))
		}
		return
	}
	client.SendEvent(brackets.EventSnapshot, state)
}
