package handlers

import (
	"sync"

	"github.com/google/uuid"

	"teamchat-backend/internal/logger"
)

// Sender is the outbound half of a live connection. The websocket handler
// passes its write-locked connection wrapper; tests pass recording fakes.
type Sender interface {
	SendJSON(v interface{}) error
}

type connState struct {
	userID uuid.UUID
	sender Sender
	// chat ids this connection has joined
	rooms map[uuid.UUID]struct{}
}

// RoomManager tracks which live connections are listening to which chat. It
// is a disposable cache of "who is currently listening", never authorization
// state: membership is re-checked against the store at the point of use. It
// is injected where needed rather than held as package-global state so a
// shared registry can replace it for multi-node deployments.
type RoomManager struct {
	mu sync.RWMutex
	// chatID -> connID -> sender
	rooms map[uuid.UUID]map[string]Sender
	// connID -> state (includes the inverse room set)
	conns map[string]*connState
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[uuid.UUID]map[string]Sender),
		conns: make(map[string]*connState),
	}
}

// Register records a newly authenticated connection. Must be called before
// any Join for that connection.
func (m *RoomManager) Register(connID string, userID uuid.UUID, s Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns[connID] = &connState{
		userID: userID,
		sender: s,
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// Unregister drops the connection and removes it from every room it joined.
// All room membership for a connection is rebuilt from scratch on reconnect.
func (m *RoomManager) Unregister(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.conns[connID]
	if !ok {
		return
	}
	for chatID := range state.rooms {
		m.removeFromRoom(chatID, connID)
	}
	delete(m.conns, connID)
}

// Join enrolls the connection in the chat's room. Idempotent: joining twice
// does not duplicate future deliveries.
func (m *RoomManager) Join(connID string, chatID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.conns[connID]
	if !ok {
		return
	}
	if _, ok := m.rooms[chatID]; !ok {
		m.rooms[chatID] = make(map[string]Sender)
	}
	m.rooms[chatID][connID] = state.sender
	state.rooms[chatID] = struct{}{}
}

// Leave removes the connection from the room; no-op if not a member.
func (m *RoomManager) Leave(connID string, chatID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.conns[connID]; ok {
		delete(state.rooms, chatID)
	}
	m.removeFromRoom(chatID, connID)
}

// removeFromRoom must be called with the lock held.
func (m *RoomManager) removeFromRoom(chatID uuid.UUID, connID string) {
	if conns, ok := m.rooms[chatID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.rooms, chatID)
		}
	}
}

// IsJoined reports whether the connection currently has the chat's room open.
func (m *RoomManager) IsJoined(connID string, chatID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.conns[connID]
	if !ok {
		return false
	}
	_, joined := state.rooms[chatID]
	return joined
}

// BroadcastToRoom delivers the event to every connection in the chat's room,
// the originator included: the sender's client does not assume an echo.
func (m *RoomManager) BroadcastToRoom(chatID uuid.UUID, event interface{}) {
	m.broadcast(chatID, event, "")
}

// BroadcastToRoomExcept delivers to every room member except one connection.
// Used for typing relays, which the sender does not need back.
func (m *RoomManager) BroadcastToRoomExcept(chatID uuid.UUID, exceptConnID string, event interface{}) {
	m.broadcast(chatID, event, exceptConnID)
}

func (m *RoomManager) broadcast(chatID uuid.UUID, event interface{}, exceptConnID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for connID, sender := range m.rooms[chatID] {
		if connID == exceptConnID {
			continue
		}
		if err := sender.SendJSON(event); err != nil {
			// Write failures surface in the connection's own read loop,
			// which tears the connection down.
			logger.L().Warn().Err(err).Str("conn_id", connID).Msg("room broadcast write failed")
		}
	}
}

// NotifyUser delivers an event to every live connection of a user regardless
// of which rooms it has joined. This is the personal channel used for
// list-view updates.
func (m *RoomManager) NotifyUser(userID uuid.UUID, event interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for connID, state := range m.conns {
		if state.userID != userID {
			continue
		}
		if err := state.sender.SendJSON(event); err != nil {
			logger.L().Warn().Err(err).Str("conn_id", connID).Msg("user notify write failed")
		}
	}
}

// NotifyUsers fans an event out to the personal channel of each user.
func (m *RoomManager) NotifyUsers(userIDs []uuid.UUID, event interface{}) {
	for _, id := range userIDs {
		m.NotifyUser(id, event)
	}
}
