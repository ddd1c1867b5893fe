package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/elijahnyp/device_controller/codec"
	"github.com/elijahnyp/device_controller/controller"
	"github.com/elijahnyp/device_controller/state"
	. "github.com/elijahnyp/device_controller/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub maintains the set of active clients and broadcasts messages
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
	quit       chan struct{}
	done       chan struct{}
}

// DeviceView is the JSON form of a device snapshot
type DeviceView struct {
	Identity    string            `json:"identity"`
	Mode        string            `json:"mode"`
	Revision    uint64            `json:"revision"`
	Attributes  []state.Attribute `json:"attributes"`
	Description string            `json:"description"`
}

func NewDeviceView(s state.DeviceState, description string) DeviceView {
	attrs := s.Attributes.All()
	if attrs == nil {
		attrs = []state.Attribute{}
	}
	return DeviceView{
		Identity:    s.Identity,
		Mode:        s.Mode.String(),
		Revision:    s.Revision,
		Attributes:  attrs,
		Description: description,
	}
}

// NewHub creates a new WebSocket hub
func NewHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 16),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts the WebSocket hub
func (h *WSHub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (h *WSHub) Stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

// BroadcastUpdate sends an update to all connected clients
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		// Channel is full, skip this update
	}
}

func (h *WSHub) OnDeviceUpdate(u controller.Update) {
	h.BroadcastUpdate("device_update", NewDeviceView(u.Snapshot, u.Description))
}

// readPump pumps messages from the websocket connection to the hub
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer. The current
// device state is sent first, then every update.
func (h *host) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WebSocketMessage, 256),
		hub:  h.hub,
	}
	client.send <- WebSocketMessage{Type: "device_state", Data: h.deviceView()}

	select {
	case client.hub.register <- client:
	case <-client.hub.quit:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *host) deviceView() DeviceView {
	snap := h.ctrl.Snapshot()
	desc, err := codec.Render(snap)
	if err != nil {
		desc = SentinelDescription
	}
	return NewDeviceView(snap, desc)
}

// APIDevice returns the device snapshot as JSON
func (h *host) APIDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.deviceView()); err != nil {
		Logger.Error().Err(err).Msg("Error encoding device")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// APIDescription returns the same text the C entry points hand out
func (h *host) APIDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(describeOrSentinel(h.ctrl))); err != nil {
		Logger.Error().Msgf("Error writing response: %v", err)
	}
}
