package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"teamchat-backend/internal/chaterr"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"
)

// ChatService is the conversation registry: it owns chat creation, renaming,
// deletion and listing. Message-level operations live in MessageService.
type ChatService struct {
	store store.Store
}

func NewChatService(st store.Store) *ChatService {
	return &ChatService{store: st}
}

// CreateGroup creates a group chat whose participant set is the union of the
// creator and the given ids, deduplicated in order of appearance.
func (s *ChatService) CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, participantIDs []uuid.UUID) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: chat name required", chaterr.ErrValidation)
	}
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", chaterr.ErrValidation)
	}

	members := []uuid.UUID{creatorID}
	seen := map[uuid.UUID]bool{creatorID: true}
	for _, id := range participantIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	chat := &models.Chat{
		ID:        uuid.New(),
		Kind:      models.ChatKindGroup,
		Name:      &name,
		CreatorID: creatorID,
	}
	if err := s.store.CreateChat(ctx, chat, members); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetOrCreateDirect returns the direct chat between the two users, creating it
// on first request. Re-requesting the same pair always resolves to the same
// chat; a racing create loses on the pair-key unique index and re-selects.
func (s *ChatService) GetOrCreateDirect(ctx context.Context, userID, recipientID uuid.UUID) (*models.Chat, bool, error) {
	if userID == recipientID {
		return nil, false, fmt.Errorf("%w: cannot chat with yourself", chaterr.ErrValidation)
	}

	chat, err := s.store.DirectChatBetween(ctx, userID, recipientID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, store.ErrNoRows) {
		return nil, false, err
	}

	chat = &models.Chat{
		ID:        uuid.New(),
		Kind:      models.ChatKindDirect,
		CreatorID: userID,
	}
	err = s.store.CreateChat(ctx, chat, []uuid.UUID{userID, recipientID})
	if errors.Is(err, store.ErrDuplicateChat) {
		chat, err = s.store.DirectChatBetween(ctx, userID, recipientID)
		return chat, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

// Rename changes a group chat's display name. Allowed for the chat's creator
// or an elevated role; direct chats have no name to change. Returns the chat
// and its participant ids so callers can fan the rename out.
func (s *ChatService) Rename(ctx context.Context, callerID, chatID uuid.UUID, newName string) (*models.Chat, []uuid.UUID, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, nil, fmt.Errorf("%w: chat name required", chaterr.ErrValidation)
	}

	chat, err := s.loadChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	// Kind is checked before authorization: renaming a direct chat is invalid
	// for everyone, creator and elevated roles included.
	if chat.Kind != models.ChatKindGroup {
		return nil, nil, fmt.Errorf("%w: direct chats cannot be renamed", chaterr.ErrValidation)
	}
	if err := s.authorizeChatAdmin(ctx, callerID, chat); err != nil {
		return nil, nil, err
	}

	if err := s.store.RenameChat(ctx, chatID, newName); err != nil {
		return nil, nil, err
	}
	chat.Name = &newName

	members, err := s.store.MemberIDs(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, members, nil
}

// Delete removes a group chat and all of its messages. Direct chats can never
// be deleted; messages inside a surviving chat are only ever soft-deleted.
func (s *ChatService) Delete(ctx context.Context, callerID, chatID uuid.UUID) error {
	chat, err := s.loadChat(ctx, chatID)
	if err != nil {
		return err
	}
	// The kind check precedes authorization so a direct chat answers with
	// validation no matter who asks.
	if chat.Kind == models.ChatKindDirect {
		return fmt.Errorf("%w: direct chats cannot be deleted", chaterr.ErrValidation)
	}
	if err := s.authorizeChatAdmin(ctx, callerID, chat); err != nil {
		return err
	}
	return s.store.DeleteChat(ctx, chatID)
}

func (s *ChatService) loadChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.store.ChatByID(ctx, chatID)
	if errors.Is(err, store.ErrNoRows) {
		return nil, fmt.Errorf("%w: chat %s", chaterr.ErrNotFound, chatID)
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// authorizeChatAdmin checks the caller is the chat's creator or holds an
// elevated role. The role is re-read from the user store, never taken from
// session state.
func (s *ChatService) authorizeChatAdmin(ctx context.Context, callerID uuid.UUID, chat *models.Chat) error {
	if chat.CreatorID == callerID {
		return nil
	}
	role, err := s.store.UserRole(ctx, callerID)
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		return err
	}
	if !role.Elevated() {
		return fmt.Errorf("%w: not the chat creator", chaterr.ErrForbidden)
	}
	return nil
}

// ListForUser returns every chat the user participates in, most recently
// active first, annotated with participant display data and the last-message
// preview.
func (s *ChatService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatListItem, error) {
	return s.store.ChatsForUser(ctx, userID)
}
