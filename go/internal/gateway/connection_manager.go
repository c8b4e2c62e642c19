package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RoomListener receives room membership and client message callbacks.
type RoomListener interface {
	OnJoin(ctx context.Context, conn *Connection)
	OnLeave(ctx context.Context, conn *Connection)
	OnClientMessage(ctx context.Context, conn *Connection, msg ClientMessage)
}

// ConnectionManager manages WebSocket connections grouped into per-workshop
// rooms.
type ConnectionManager struct {
	rooms map[uuid.UUID]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	listener RoomListener

	broadcastCh chan BroadcastMessage
}

// Connection represents one WebSocket client in one workshop room.
type Connection struct {
	ID          string
	UserID      string
	DisplayName string
	IsOrganizer bool
	WorkshopID  uuid.UUID
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to a room
type BroadcastMessage struct {
	WorkshopID uuid.UUID
	Event      *RoomEvent
	UserID     string // Optional: if set, only send to this user
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetListener attaches the room listener. Must be called before connections
// are accepted.
func (cm *ConnectionManager) SetListener(l RoomListener) {
	cm.listener = l
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and joins the
// client to the workshop's room.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, displayName string, isOrganizer bool, workshopID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		DisplayName: displayName,
		IsOrganizer: isOrganizer,
		WorkshopID:  workshopID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	if cm.listener != nil {
		go cm.listener.OnJoin(context.Background(), connection)
	}

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("workshop_id", workshopID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	room := cm.rooms[conn.WorkshopID]
	if room == nil {
		room = make(map[*Connection]bool)
		cm.rooms[conn.WorkshopID] = room
	}

	// A rejoin replaces any handle the same user left behind, so a network
	// blip does not leave a ghost receiving broadcasts until the read timeout.
	for existing := range room {
		if existing.UserID == conn.UserID && existing.ID != conn.ID {
			delete(room, existing)
			close(existing.Send)
			log.Info().
				Str("connection_id", existing.ID).
				Str("user_id", existing.UserID).
				Str("workshop_id", conn.WorkshopID.String()).
				Msg("evicted stale connection on rejoin")
		}
	}
	room[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("workshop_id", conn.WorkshopID.String()).
		Int("room_size", len(room)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.rooms[conn.WorkshopID]
	removed := false
	if exists {
		if _, ok := connections[conn]; ok {
			delete(connections, conn)
			close(conn.Send)
			removed = true

			if len(connections) == 0 {
				delete(cm.rooms, conn.WorkshopID)
			}
		}
	}
	cm.mu.Unlock()

	if removed {
		if cm.listener != nil {
			go cm.listener.OnLeave(context.Background(), conn)
		}
		log.Info().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Str("workshop_id", conn.WorkshopID.String()).
			Msg("connection unregistered")
	}
}

// BroadcastToWorkshop sends an event to all connections in a workshop room.
func (cm *ConnectionManager) BroadcastToWorkshop(workshopID uuid.UUID, event *RoomEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{WorkshopID: workshopID, Event: event}:
	default:
		log.Warn().Str("workshop_id", workshopID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToUser sends an event to one user's connections in a room.
func (cm *ConnectionManager) BroadcastToUser(workshopID uuid.UUID, userID string, event *RoomEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{WorkshopID: workshopID, Event: event, UserID: userID}:
	default:
		log.Warn().
			Str("workshop_id", workshopID.String()).
			Str("user_id", userID).
			Msg("broadcast channel full, dropping user message")
	}
}

// DisconnectUser removes all of a user's connections from a room, firing the
// usual leave handling for each. Returns the number of connections closed.
func (cm *ConnectionManager) DisconnectUser(workshopID uuid.UUID, userID string) int {
	cm.mu.RLock()
	var targets []*Connection
	for conn := range cm.rooms[workshopID] {
		if conn.UserID == userID {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		cm.unregisterConnection(conn)
	}
	return len(targets)
}

// SendToConnection pushes an event to a single connection, evicting it if its
// buffer is full.
func (cm *ConnectionManager) SendToConnection(conn *Connection, event *RoomEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.rooms[message.WorkshopID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot so the lock is not held while writing to sockets.
	var targets []*Connection
	for conn := range connections {
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- eventData:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", message.Event.Type).
		Str("workshop_id", message.WorkshopID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// PresenceInfo describes one online room member.
type PresenceInfo struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsOrganizer bool   `json:"is_organizer"`
}

// OnlineUsers returns the distinct users connected to a room. A reconnecting
// user appears once.
func (cm *ConnectionManager) OnlineUsers(workshopID uuid.UUID) []PresenceInfo {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	seen := make(map[string]bool)
	var out []PresenceInfo
	for conn := range cm.rooms[workshopID] {
		if seen[conn.UserID] {
			continue
		}
		seen[conn.UserID] = true
		out = append(out, PresenceInfo{UserID: conn.UserID, DisplayName: conn.DisplayName, IsOrganizer: conn.IsOrganizer})
	}
	return out
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	roomCounts := make(map[string]int)
	for workshopID, connections := range cm.rooms {
		total += len(connections)
		roomCounts[workshopID.String()] = len(connections)
	}

	return map[string]interface{}{
		"total_connections": total,
		"active_rooms":      len(cm.rooms),
		"room_connections":  roomCounts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage decodes and dispatches one upstream client message.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case ClientMessageLeave:
		c.Conn.Close()
	default:
		if c.Manager.listener != nil {
			c.Manager.listener.OnClientMessage(context.Background(), c, msg)
		}
	}
}
