package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/gorilla/websocket"
)

// ChatHub fans incoming support-chat messages out to every connected admin
// console. Consoles subscribe once and filter client-side, mirroring how the
// old SPA listened on the whole message tree.
type ChatHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan *models.ChatMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func NewChatHub() *ChatHub {
	return &ChatHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan *models.ChatMessage, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set. Start it once in a goroutine.
func (h *ChatHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("[CHAT] ws write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for delivery to every connected console.
func (h *ChatHub) Broadcast(msg *models.ChatMessage) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("[CHAT] broadcast queue full, dropping message %s", msg.ID)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away. The read loop only drains control frames; consoles send
// messages over the REST endpoint.
func (h *ChatHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[CHAT] ws upgrade error: %v", err)
		return
	}

	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
