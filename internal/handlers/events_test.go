package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/store/storetest"
)

type gwFixture struct {
	t     *testing.T
	st    *storetest.Store
	gw    *Gateway
	chats *services.ChatService
}

func newGwFixture(t *testing.T) *gwFixture {
	t.Helper()
	st := storetest.New()
	chats := services.NewChatService(st)
	messages := services.NewMessageService(st, 100, false)
	return &gwFixture{
		t:     t,
		st:    st,
		gw:    NewGateway(NewRoomManager(), chats, messages),
		chats: chats,
	}
}

type conn struct {
	id     string
	user   *models.User
	sender *fakeSender
}

func (f *gwFixture) connect(user *models.User) *conn {
	c := &conn{id: uuid.New().String(), user: user, sender: &fakeSender{}}
	f.gw.Rooms().Register(c.id, user.ID, c.sender)
	return c
}

func (f *gwFixture) disconnect(c *conn) {
	f.gw.Rooms().Unregister(c.id)
}

func (f *gwFixture) dispatch(c *conn, ev models.ClientEvent) {
	f.t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(f.t, err)
	f.gw.HandleEvent(context.Background(), c.sender, c.id, c.user.ID, c.user.Name, raw)
}

// eventsOf picks all delivered events of one concrete payload type.
func eventsOf[T any](s *fakeSender) []T {
	var out []T
	for _, ev := range s.received() {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func TestGateway_GroupChatScenario(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	bob := f.st.AddUser("bob", models.RoleMember)

	chat, err := f.chats.CreateGroup(context.Background(), alice.ID, "Team", []uuid.UUID{bob.ID})
	require.NoError(t, err)

	// A joins and sends "hello".
	a := f.connect(alice)
	f.dispatch(a, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})
	f.dispatch(a, models.ClientEvent{Event: models.EventSendMessage, ChatID: chat.ID, Content: "hello"})

	// B joins and receives history = ["hello"].
	b := f.connect(bob)
	f.dispatch(b, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})
	histories := eventsOf[models.ChatHistoryEvent](b.sender)
	require.Len(t, histories, 1)
	require.Len(t, histories[0].Messages, 1)
	assert.Equal(t, "hello", histories[0].Messages[0].Content)

	// B sends "hi"; A, still joined, receives the new-message event.
	f.dispatch(b, models.ClientEvent{Event: models.EventSendMessage, ChatID: chat.ID, Content: "hi"})
	aNew := eventsOf[models.MessageEvent](a.sender)
	require.NotEmpty(t, aNew)
	got := aNew[len(aNew)-1]
	assert.Equal(t, models.EventNewMessage, got.Event)
	assert.Equal(t, "hi", got.Message.Content)
	assert.Equal(t, bob.ID, got.Message.SenderID)

	// Both participants get the list-view update on their personal channel.
	assert.NotEmpty(t, eventsOf[models.ChatUpdatedEvent](a.sender))
	assert.NotEmpty(t, eventsOf[models.ChatUpdatedEvent](b.sender))

	// A reconnects and re-joins: a fresh snapshot in send order, no gap replay.
	f.disconnect(a)
	a2 := f.connect(alice)
	f.dispatch(a2, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})
	histories = eventsOf[models.ChatHistoryEvent](a2.sender)
	require.Len(t, histories, 1)
	require.Len(t, histories[0].Messages, 2)
	assert.Equal(t, "hello", histories[0].Messages[0].Content)
	assert.Equal(t, "hi", histories[0].Messages[1].Content)
}

func TestGateway_RejectedJoinGetsErrorAndNoHistory(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	mallory := f.st.AddUser("mallory", models.RoleMember)

	chat, err := f.chats.CreateGroup(context.Background(), alice.ID, "Private", nil)
	require.Error(t, err) // empty participant list

	chat, err = f.chats.CreateGroup(context.Background(), alice.ID, "Private", []uuid.UUID{alice.ID})
	require.NoError(t, err)

	a := f.connect(alice)
	f.dispatch(a, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})

	m := f.connect(mallory)
	f.dispatch(m, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})

	assert.Empty(t, eventsOf[models.ChatHistoryEvent](m.sender))
	errs := eventsOf[models.ErrorEvent](m.sender)
	require.Len(t, errs, 1)

	// The error stays on the originating connection.
	assert.Empty(t, eventsOf[models.ErrorEvent](a.sender))

	// And the failed join did not enroll the connection.
	f.dispatch(a, models.ClientEvent{Event: models.EventSendMessage, ChatID: chat.ID, Content: "secret"})
	assert.Empty(t, eventsOf[models.MessageEvent](m.sender))
}

func TestGateway_EditBroadcastsOnce(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	bob := f.st.AddUser("bob", models.RoleMember)
	carol := f.st.AddUser("carol", models.RoleMember)

	chat, err := f.chats.CreateGroup(context.Background(), alice.ID, "Team", []uuid.UUID{bob.ID, carol.ID})
	require.NoError(t, err)

	a := f.connect(alice)
	c := f.connect(carol)
	f.dispatch(a, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})
	f.dispatch(c, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})

	f.dispatch(a, models.ClientEvent{Event: models.EventSendMessage, ChatID: chat.ID, Content: "helo"})
	sent := eventsOf[models.MessageEvent](c.sender)
	require.Len(t, sent, 1)

	f.dispatch(a, models.ClientEvent{Event: models.EventEditMessage, MessageID: sent[0].Message.ID, Content: "hello"})

	var edits []models.MessageEvent
	for _, ev := range eventsOf[models.MessageEvent](c.sender) {
		if ev.Event == models.EventMessageEdited {
			edits = append(edits, ev)
		}
	}
	require.Len(t, edits, 1, "exactly one message-edited event")
	assert.Equal(t, "hello", edits[0].Message.Content)
	assert.True(t, edits[0].Message.Edited)
}

func TestGateway_DeleteBroadcastsClearedMessage(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	bob := f.st.AddUser("bob", models.RoleMember)

	chat, err := f.chats.CreateGroup(context.Background(), alice.ID, "Team", []uuid.UUID{bob.ID})
	require.NoError(t, err)

	a := f.connect(alice)
	b := f.connect(bob)
	f.dispatch(a, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})
	f.dispatch(b, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})

	f.dispatch(a, models.ClientEvent{Event: models.EventSendMessage, ChatID: chat.ID, Content: "oops"})
	sent := eventsOf[models.MessageEvent](b.sender)
	require.Len(t, sent, 1)

	f.dispatch(a, models.ClientEvent{Event: models.EventDeleteMessage, MessageID: sent[0].Message.ID})

	var deletes []models.MessageEvent
	for _, ev := range eventsOf[models.MessageEvent](b.sender) {
		if ev.Event == models.EventMessageDeleted {
			deletes = append(deletes, ev)
		}
	}
	require.Len(t, deletes, 1)
	assert.True(t, deletes[0].Message.Deleted)
	assert.Empty(t, deletes[0].Message.Content)
}

func TestGateway_RenameReachesRoomAndPersonalChannels(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	bob := f.st.AddUser("bob", models.RoleMember)

	chat, err := f.chats.CreateGroup(context.Background(), alice.ID, "Team", []uuid.UUID{bob.ID})
	require.NoError(t, err)

	a := f.connect(alice)
	f.dispatch(a, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})

	// B is connected but does not have the chat open.
	b := f.connect(bob)

	f.dispatch(a, models.ClientEvent{Event: models.EventRenameChat, ChatID: chat.ID, Name: "Crew"})

	aRenames := eventsOf[models.ChatRenamedEvent](a.sender)
	require.NotEmpty(t, aRenames)
	assert.Equal(t, "Crew", aRenames[0].Name)

	bRenames := eventsOf[models.ChatRenamedEvent](b.sender)
	require.NotEmpty(t, bRenames, "closed-list participants hear renames on the personal channel")
	assert.Equal(t, "Crew", bRenames[0].Name)
}

func TestGateway_TypingRelay(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	bob := f.st.AddUser("bob", models.RoleMember)

	chat, err := f.chats.CreateGroup(context.Background(), alice.ID, "Team", []uuid.UUID{bob.ID})
	require.NoError(t, err)

	a := f.connect(alice)
	b := f.connect(bob)
	f.dispatch(b, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})

	// Typing before joining is silently dropped.
	f.dispatch(a, models.ClientEvent{Event: models.EventTyping, ChatID: chat.ID})
	assert.Empty(t, eventsOf[models.UserTypingEvent](b.sender))

	f.dispatch(a, models.ClientEvent{Event: models.EventJoinChat, ChatID: chat.ID})
	f.dispatch(a, models.ClientEvent{Event: models.EventTyping, ChatID: chat.ID})

	typing := eventsOf[models.UserTypingEvent](b.sender)
	require.Len(t, typing, 1)
	assert.Equal(t, alice.ID, typing[0].UserID)
	// The sender does not get its own typing signal back.
	assert.Empty(t, eventsOf[models.UserTypingEvent](a.sender))
}

func TestGateway_MalformedAndUnknownEvents(t *testing.T) {
	f := newGwFixture(t)
	alice := f.st.AddUser("alice", models.RoleMember)
	a := f.connect(alice)

	f.gw.HandleEvent(context.Background(), a.sender, a.id, alice.ID, alice.Name, []byte("{not json"))
	f.dispatch(a, models.ClientEvent{Event: "resurrect-message"})

	errs := eventsOf[models.ErrorEvent](a.sender)
	assert.Len(t, errs, 2)
}
