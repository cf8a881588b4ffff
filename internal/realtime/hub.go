package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// RoomKey derives the room a user's domain events land in.
func RoomKey(userID, domainID string) string {
	return userID + ":" + domainID
}

// Hub fans completion events out to the clients subscribed to a room.
// Emission is fire-and-forget: nothing in the pipeline depends on delivery,
// an empty room just drops the event.
type Hub struct {
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]bool),
	}
}

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	Room   string
	UserID string
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.Room]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[c.Room] = room
	}
	room[c] = true
	log.Printf("[Hub %s] Client connected. Count: %d", c.Room, len(room))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.Room]
	if !ok {
		return
	}
	if _, ok := room[c]; ok {
		delete(room, c)
		close(c.Send)
	}
	if len(room) == 0 {
		delete(h.rooms, c.Room)
	}
}

// Emit sends one named event into a room. Slow clients are dropped rather
// than blocking the pipeline.
func (h *Hub) Emit(roomKey, event string, payload any) {
	data, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		log.Printf("[Hub %s] Error marshalling event %s: %v", roomKey, event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomKey]
	if !ok {
		return
	}
	for client := range room {
		select {
		case client.Send <- data:
		default:
			close(client.Send)
			delete(room, client)
		}
	}
}

// RoomSize reports how many clients a room currently has.
func (h *Hub) RoomSize(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

// ReadPump drains messages FROM the frontend. The channel is one-way in
// practice, so inbound frames only feed the pong/close handling.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump handles messages going TO the frontend.
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
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// Heartbeat: keep connection alive
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
