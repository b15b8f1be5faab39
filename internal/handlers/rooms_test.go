package handlers

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeSender records every delivered event.
type fakeSender struct {
	mu     sync.Mutex
	events []interface{}
}

func (f *fakeSender) SendJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, v)
	return nil
}

func (f *fakeSender) received() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.events...)
}

func TestRoomManager_JoinIsIdempotent(t *testing.T) {
	m := NewRoomManager()
	chatID := uuid.New()
	s := &fakeSender{}

	m.Register("conn-1", uuid.New(), s)
	m.Join("conn-1", chatID)
	m.Join("conn-1", chatID)

	m.BroadcastToRoom(chatID, "hello")
	assert.Len(t, s.received(), 1, "double join must not duplicate delivery")
}

func TestRoomManager_BroadcastIncludesSender(t *testing.T) {
	m := NewRoomManager()
	chatID := uuid.New()
	sender := &fakeSender{}
	other := &fakeSender{}

	m.Register("conn-1", uuid.New(), sender)
	m.Register("conn-2", uuid.New(), other)
	m.Join("conn-1", chatID)
	m.Join("conn-2", chatID)

	m.BroadcastToRoom(chatID, "event")
	assert.Len(t, sender.received(), 1, "the originator's connection receives room broadcasts too")
	assert.Len(t, other.received(), 1)
}

func TestRoomManager_BroadcastExceptExcludesOne(t *testing.T) {
	m := NewRoomManager()
	chatID := uuid.New()
	typer := &fakeSender{}
	other := &fakeSender{}

	m.Register("conn-1", uuid.New(), typer)
	m.Register("conn-2", uuid.New(), other)
	m.Join("conn-1", chatID)
	m.Join("conn-2", chatID)

	m.BroadcastToRoomExcept(chatID, "conn-1", "typing")
	assert.Empty(t, typer.received())
	assert.Len(t, other.received(), 1)
}

func TestRoomManager_NotifyUserIndependentOfRooms(t *testing.T) {
	m := NewRoomManager()
	userID := uuid.New()
	first := &fakeSender{}
	second := &fakeSender{}
	someoneElse := &fakeSender{}

	// Two live connections for the same user, neither in any room.
	m.Register("conn-1", userID, first)
	m.Register("conn-2", userID, second)
	m.Register("conn-3", uuid.New(), someoneElse)

	m.NotifyUser(userID, "chat-updated")
	assert.Len(t, first.received(), 1)
	assert.Len(t, second.received(), 1)
	assert.Empty(t, someoneElse.received())
}

func TestRoomManager_UnregisterLeavesEveryRoom(t *testing.T) {
	m := NewRoomManager()
	roomA := uuid.New()
	roomB := uuid.New()
	leaving := &fakeSender{}
	staying := &fakeSender{}

	m.Register("conn-1", uuid.New(), leaving)
	m.Register("conn-2", uuid.New(), staying)
	m.Join("conn-1", roomA)
	m.Join("conn-1", roomB)
	m.Join("conn-2", roomA)

	m.Unregister("conn-1")

	assert.False(t, m.IsJoined("conn-1", roomA))
	assert.False(t, m.IsJoined("conn-1", roomB))

	m.BroadcastToRoom(roomA, "x")
	m.BroadcastToRoom(roomB, "y")
	m.NotifyUser(uuid.New(), "z")
	assert.Empty(t, leaving.received())
	assert.Len(t, staying.received(), 1)
}

func TestRoomManager_LeaveIsNoopWhenNotJoined(t *testing.T) {
	m := NewRoomManager()
	chatID := uuid.New()
	s := &fakeSender{}

	m.Register("conn-1", uuid.New(), s)
	m.Leave("conn-1", chatID)
	m.Leave("unknown-conn", chatID)

	assert.False(t, m.IsJoined("conn-1", chatID))
}
