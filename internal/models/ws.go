package models

import "github.com/google/uuid"

// Client -> server socket events.
const (
	EventJoinChat      = "join-chat"
	EventLeaveChat     = "leave-chat"
	EventTyping        = "typing"
	EventSendMessage   = "send-message"
	EventEditMessage   = "edit-message"
	EventDeleteMessage = "delete-message"
	EventRenameChat    = "rename-chat"
)

// Server -> client socket events.
const (
	EventChatHistory    = "chat-history"
	EventUserTyping     = "user-typing"
	EventNewMessage     = "new-message"
	EventChatUpdated    = "chat-updated"
	EventMessageEdited  = "message-edited"
	EventMessageDeleted = "message-deleted"
	EventChatRenamed    = "chat-renamed"
	EventError          = "error"
)

// ClientEvent is the single inbound envelope; which fields matter depends on
// the event name. Absent ids decode as the zero UUID.
type ClientEvent struct {
	Event     string    `json:"event"`
	ChatID    uuid.UUID `json:"chat_id,omitempty"`
	MessageID uuid.UUID `json:"message_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Name      string    `json:"name,omitempty"`
}

type ChatHistoryEvent struct {
	Event    string    `json:"event"`
	ChatID   uuid.UUID `json:"chat_id"`
	Messages []Message `json:"messages"`
}

type UserTypingEvent struct {
	Event  string    `json:"event"`
	ChatID uuid.UUID `json:"chat_id"`
	UserID uuid.UUID `json:"user_id"`
}

// MessageEvent carries new-message, message-edited and message-deleted.
type MessageEvent struct {
	Event   string    `json:"event"`
	ChatID  uuid.UUID `json:"chat_id"`
	Message *Message  `json:"message"`
}

type ChatUpdatedEvent struct {
	Event       string    `json:"event"`
	ChatID      uuid.UUID `json:"chat_id"`
	LastMessage *Message  `json:"last_message"`
}

type ChatRenamedEvent struct {
	Event  string    `json:"event"`
	ChatID uuid.UUID `json:"chat_id"`
	Name   string    `json:"name"`
}

type ErrorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
