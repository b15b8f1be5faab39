package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamchat-backend/internal/chaterr"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"
)

// mediaMarkers are the tags that make otherwise-empty rich-text content a
// valid message (an embedded image or file link with no caption).
var mediaMarkers = []string{"<img", "<video", "<audio", "<a "}

// MessageService is the message lifecycle engine: send, edit and soft-delete,
// plus history replay. Every state change is persisted before anything is
// handed back for broadcast.
type MessageService struct {
	store store.Store

	// historyLimit caps the snapshot replayed on join.
	historyLimit int
	// editUpdatesPreview controls whether editing a chat's latest message also
	// refreshes the list-view preview for all participants.
	editUpdatesPreview bool
}

func NewMessageService(st store.Store, historyLimit int, editUpdatesPreview bool) *MessageService {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &MessageService{store: st, historyLimit: historyLimit, editUpdatesPreview: editUpdatesPreview}
}

func validContent(content string) bool {
	if strings.TrimSpace(content) != "" {
		return true
	}
	lower := strings.ToLower(content)
	for _, marker := range mediaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Send validates, persists and returns the new message together with the
// chat's participant ids for per-user fan-out. Membership is re-checked here,
// not trusted from join-time state.
func (s *MessageService) Send(ctx context.Context, senderID uuid.UUID, senderName string, chatID uuid.UUID, content string) (*models.Message, []uuid.UUID, error) {
	if !validContent(content) {
		return nil, nil, fmt.Errorf("%w: message content required", chaterr.ErrValidation)
	}

	if _, err := s.store.ChatByID(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: chat %s", chaterr.ErrNotFound, chatID)
		}
		return nil, nil, err
	}
	member, err := s.store.IsMember(ctx, chatID, senderID)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		return nil, nil, fmt.Errorf("%w: not a participant of this chat", chaterr.ErrForbidden)
	}

	msg := &models.Message{
		ID:         uuid.New(),
		ChatID:     chatID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, nil, err
	}

	members, err := s.store.MemberIDs(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return msg, members, nil
}

// Edit updates a message's content. Only the original sender may edit, and a
// soft-deleted message is terminal. The returned participant ids are non-nil
// only when the edit should also refresh the chat's list-view preview.
func (s *MessageService) Edit(ctx context.Context, callerID, messageID uuid.UUID, content string) (*models.Message, []uuid.UUID, error) {
	if !validContent(content) {
		return nil, nil, fmt.Errorf("%w: message content required", chaterr.ErrValidation)
	}

	msg, err := s.ownMessage(ctx, callerID, messageID)
	if err != nil {
		return nil, nil, err
	}
	if msg.Deleted {
		return nil, nil, fmt.Errorf("%w: message was deleted", chaterr.ErrConflict)
	}

	now := time.Now().UTC()
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &now
	if err := s.store.UpdateMessage(ctx, msg); err != nil {
		return nil, nil, err
	}

	if !s.editUpdatesPreview {
		return msg, nil, nil
	}
	chat, err := s.store.ChatByID(ctx, msg.ChatID)
	if err != nil {
		return nil, nil, err
	}
	if chat.LastMessageID == nil || *chat.LastMessageID != msg.ID {
		return msg, nil, nil
	}
	members, err := s.store.MemberIDs(ctx, msg.ChatID)
	if err != nil {
		return nil, nil, err
	}
	return msg, members, nil
}

// Delete soft-deletes a message: content cleared, flag permanent. Author-only,
// same as edit; there is no role override and no un-delete.
func (s *MessageService) Delete(ctx context.Context, callerID, messageID uuid.UUID) (*models.Message, error) {
	msg, err := s.ownMessage(ctx, callerID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, fmt.Errorf("%w: message already deleted", chaterr.ErrConflict)
	}

	now := time.Now().UTC()
	msg.Content = ""
	msg.Deleted = true
	msg.Edited = true
	msg.EditedAt = &now
	if err := s.store.UpdateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) ownMessage(ctx context.Context, callerID, messageID uuid.UUID) (*models.Message, error) {
	msg, err := s.store.MessageByID(ctx, messageID)
	if errors.Is(err, store.ErrNoRows) {
		return nil, fmt.Errorf("%w: message %s", chaterr.ErrNotFound, messageID)
	}
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, fmt.Errorf("%w: only the author may change a message", chaterr.ErrForbidden)
	}
	return msg, nil
}

// History returns the latest messages of a chat in ascending creation order,
// capped at the configured history limit. The caller must be a participant.
func (s *MessageService) History(ctx context.Context, callerID, chatID uuid.UUID) ([]models.Message, error) {
	if _, err := s.store.ChatByID(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, fmt.Errorf("%w: chat %s", chaterr.ErrNotFound, chatID)
		}
		return nil, err
	}
	member, err := s.store.IsMember(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: not a participant of this chat", chaterr.ErrForbidden)
	}
	return s.store.MessagesForChat(ctx, chatID, s.historyLimit)
}
