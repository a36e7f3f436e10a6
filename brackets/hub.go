package brackets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// Типы событий, рассылаемых зрителям турнира.
const (
	EventTournamentInitialized = "TOURNAMENT_INITIALIZED"
	EventRoundPaired           = "ROUND_PAIRED"
	EventResultReported        = "RESULT_REPORTED"
	EventRoundCompleted        = "ROUND_COMPLETED"
	// Отправляется только что подключившемуся зрителю.
	EventSnapshot = "TOURNAMENT_SNAPSHOT"
)

type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// RoomForTournament - имя комнаты для турнира с данным ключом.
func RoomForTournament(key string) string {
	return "tournament_" + key
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
	stopped    chan struct{} // закрывается, когда Run завершился
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
		stopped:    make(chan struct{}),
	}
}

// Join регистрирует клиента; false, если хаб уже остановлен.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

// Leave снимает клиента с регистрации и не блокируется после остановки хаба.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.stopped:
	}
}

// stop закрывает очереди всех клиентов, чтобы их WritePump завершились.
func (h *Hub) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	close(h.stopped)
	for room, clients := range h.rooms {
		for client := range clients {
			client.Mu.Lock()
			if !client.IsClosed {
				close(client.Send)
				client.IsClosed = true
			}
			client.Mu.Unlock()
		}
		delete(h.rooms, room)
	}
	h.logger.Debug("websocket hub stopped")
}

// Run обслуживает регистрацию клиентов, пока не закрыт done.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			h.stop()
			return
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("websocket client registered", slog.String("room", client.Room), slog.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Debug("websocket client unregistered", slog.String("room", client.Room), slog.Int("clients", len(clients)))
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount возвращает число клиентов в комнате.
func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom отправляет сообщение всем клиентам в указанной комнате.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range roomClients {
		if !client.enqueue(messageBytes) {
			h.logger.Warn("websocket client send buffer full, skipping", slog.String("room", roomID))
		}
	}
}

// enqueue не блокируется: закрытому клиенту или при полном буфере сообщение отбрасывается.
func (c *Client) enqueue(data []byte) bool {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.IsClosed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// SendEvent отправляет событие одному клиенту.
func (c *Client) SendEvent(eventType string, payload interface{}) bool {
	data, err := json.Marshal(WebSocketMessage{Type: eventType, Payload: payload, RoomID: c.Room})
	if err != nil {
		c.Hub.logger.Error("failed to marshal websocket message", slog.String("room", c.Room), slog.Any("error", err))
		return false
	}
	return c.enqueue(data)
}

// BroadcastEvent оборачивает payload в WebSocketMessage и рассылает в комнату.
func (h *Hub) BroadcastEvent(roomID, eventType string, payload interface{}) {
	h.BroadcastToRoom(roomID, WebSocketMessage{Type: eventType, Payload: payload, RoomID: roomID})
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Входящие сообщения зрителей игнорируются.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read error", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
