package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatKind is fixed at creation. Direct chats always have exactly two
// participants and no name of their own; group chats have a mutable name and
// one or more participants.
type ChatKind string

const (
	ChatKindGroup  ChatKind = "group"
	ChatKindDirect ChatKind = "direct"
)

func (k ChatKind) IsValid() bool {
	switch k {
	case ChatKindGroup, ChatKindDirect:
		return true
	}
	return false
}

type Chat struct {
	ID            uuid.UUID  `json:"id"`
	Kind          ChatKind   `json:"kind"`
	Name          *string    `json:"name,omitempty"`
	CreatorID     uuid.UUID  `json:"creator_id"`
	LastMessageID *uuid.UUID `json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ChatListItem is one row of a user's chat list: the chat annotated with
// resolved participant display data and the cached last-message preview.
type ChatListItem struct {
	Chat
	Participants []UserRef `json:"participants"`
	LastMessage  *Message  `json:"last_message,omitempty"`
}

type CreateGroupChatRequest struct {
	Name         string      `json:"name"`
	Participants []uuid.UUID `json:"participants"`
}

type CreateDirectChatRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
}
