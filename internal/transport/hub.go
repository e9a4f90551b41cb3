// Package transport exposes the chat socket server: it feeds inbound room
// chat into the game bot, reports disconnects, and delivers the bot's
// broadcast lines back onto the wire.
package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// GameBot is the engine surface the transport drives.
type GameBot interface {
	HandleCommand(roomID, raw, userID, username, socketID string)
	HandleDisconnect(roomID, userID string)
}

// InboundMessage is a frame from a chat client.
type InboundMessage struct {
	Type string `json:"type"` // "join", "leave" or "chat"
	Room string `json:"room"`
	Text string `json:"text,omitempty"`
}

// OutboundMessage is a bot-authored frame pushed to chat clients.
type OutboundMessage struct {
	Room   string `json:"room,omitempty"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
}

// Hub tracks connected clients and their room memberships.
type Hub struct {
	bot GameBot

	mu      sync.RWMutex
	clients map[string]*Client          // socketID -> client
	rooms   map[string]map[*Client]bool // roomID -> members

	upgrader websocket.Upgrader
}

// NewHub creates a hub over the given bot. The bot may be nil at
// construction and wired with SetBot before the server starts: the engine
// needs the hub as its broadcaster, so the two are built in sequence.
func NewHub(bot GameBot) *Hub {
	return &Hub{
		bot:     bot,
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The chat app fronts this server; origin checks happen there.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetBot wires the engine. Must be called before the server accepts
// connections.
func (h *Hub) SetBot(bot GameBot) {
	h.bot = bot
}

// ServeHTTP upgrades a connection. The chat pipeline upstream has already
// authenticated the user; identity arrives in query parameters.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	username := r.URL.Query().Get("name")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	if username == "" {
		username = userID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 64),
		rooms:    make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	log.Info().Str("socket", client.ID).Str("user", userID).Msg("client connected")

	go client.writePump()
	go client.readPump()
}

// joinRoom adds a client to a room's member set.
func (h *Hub) joinRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[roomID] = members
	}
	members[c] = true
	c.rooms[roomID] = true
}

// leaveRoom removes a client from a room's member set.
func (h *Hub) leaveRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(c.rooms, roomID)
}

// drop unregisters a client and tells the bot about the disconnect for
// every room the client was in.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	roomIDs := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		roomIDs = append(roomIDs, roomID)
		if members, ok := h.rooms[roomID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()

	close(c.send)
	for _, roomID := range roomIDs {
		h.bot.HandleDisconnect(roomID, c.UserID)
	}
	log.Info().Str("socket", c.ID).Str("user", c.UserID).Msg("client disconnected")
}

// ToRoom delivers a bot line to every member of a room.
func (h *Hub) ToRoom(roomID, sender, text, image string) {
	payload, err := json.Marshal(OutboundMessage{Room: roomID, Sender: sender, Text: text, Image: image})
	if err != nil {
		log.Error().Err(err).Msg("marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; the write pump will notice the closed socket.
			log.Warn().Str("socket", c.ID).Msg("dropping frame for slow client")
		}
	}
}

// ToSocket delivers a bot line to a single connection. Unknown socket ids
// are dropped silently; the client is already gone.
func (h *Hub) ToSocket(socketID, sender, text, image string) {
	payload, err := json.Marshal(OutboundMessage{Sender: sender, Text: text, Image: image})
	if err != nil {
		log.Error().Err(err).Msg("marshal direct message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[socketID]; ok {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}
