package models

import (
	"time"

	"github.com/google/uuid"
)

// Message belongs to exactly one chat. Deletion is a soft delete: the content
// is cleared and the flag is permanent, the row itself is never removed.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	ChatID     uuid.UUID  `json:"chat_id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	SenderName string     `json:"sender_name"`
	Content    string     `json:"content"`
	Deleted    bool       `json:"deleted"`
	Edited     bool       `json:"edited"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
