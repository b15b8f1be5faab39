package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"teamchat-backend/internal/models"
)

var (
	// ErrNoRows is returned when a lookup resolves nothing.
	ErrNoRows = errors.New("store: no rows")
	// ErrDuplicateUser is returned when a user name is already taken.
	ErrDuplicateUser = errors.New("store: duplicate user")
	// ErrDuplicateChat is returned when a direct chat for the same user pair
	// was created concurrently. The caller should re-run the lookup.
	ErrDuplicateChat = errors.New("store: duplicate chat")
)

// Store is the persistence surface the chat core runs against. Postgres is the
// production implementation; tests run an in-memory fake.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	UserByName(ctx context.Context, name string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserRole(ctx context.Context, id uuid.UUID) (models.Role, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Chats
	CreateChat(ctx context.Context, chat *models.Chat, memberIDs []uuid.UUID) error
	ChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	DirectChatBetween(ctx context.Context, a, b uuid.UUID) (*models.Chat, error)
	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	MemberIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	RenameChat(ctx context.Context, chatID uuid.UUID, name string) error
	DeleteChat(ctx context.Context, chatID uuid.UUID) error
	ChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatListItem, error)

	// Messages
	InsertMessage(ctx context.Context, msg *models.Message) error
	MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	UpdateMessage(ctx context.Context, msg *models.Message) error
	MessagesForChat(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error)
}

// DirectPairKey builds the order-independent key that uniquely identifies the
// direct chat between two users.
func DirectPairKey(a, b uuid.UUID) string {
	if b.String() < a.String() {
		a, b = b, a
	}
	return a.String() + ":" + b.String()
}
