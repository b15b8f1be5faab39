package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"teamchat-backend/internal/models"
)

const pgUniqueViolation = "23505"

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (id, name, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := s.pool.QueryRow(ctx, query, u.ID, u.Name, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	return err
}

func (s *Postgres) UserByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT id, name, password_hash, role, created_at FROM users WHERE name = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, name))
}

func (s *Postgres) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, name, password_hash, role, created_at FROM users WHERE id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, id))
}

func (s *Postgres) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) UserRole(ctx context.Context, id uuid.UUID) (models.Role, error) {
	var role models.Role
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoRows
	}
	return role, err
}

func (s *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, password_hash, role, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) CreateChat(ctx context.Context, chat *models.Chat, memberIDs []uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var pairKey *string
	if chat.Kind == models.ChatKindDirect {
		key := DirectPairKey(memberIDs[0], memberIDs[1])
		pairKey = &key
	}

	query := `INSERT INTO chats (id, kind, name, creator_id, pair_key) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err = tx.QueryRow(ctx, query, chat.ID, chat.Kind, chat.Name, chat.CreatorID, pairKey).Scan(&chat.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateChat
	}
	if err != nil {
		return err
	}

	for _, id := range memberIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`, chat.ID, id); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Postgres) ChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	query := `SELECT id, kind, name, creator_id, last_message_id, last_message_at, created_at FROM chats WHERE id = $1`
	return s.scanChat(s.pool.QueryRow(ctx, query, id))
}

func (s *Postgres) DirectChatBetween(ctx context.Context, a, b uuid.UUID) (*models.Chat, error) {
	query := `SELECT id, kind, name, creator_id, last_message_id, last_message_at, created_at FROM chats WHERE pair_key = $1`
	return s.scanChat(s.pool.QueryRow(ctx, query, DirectPairKey(a, b)))
}

func (s *Postgres) scanChat(row pgx.Row) (*models.Chat, error) {
	var c models.Chat
	err := row.Scan(&c.ID, &c.Kind, &c.Name, &c.CreatorID, &c.LastMessageID, &c.LastMessageAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2)`
	err := s.pool.QueryRow(ctx, query, chatID, userID).Scan(&exists)
	return exists, err
}

func (s *Postgres) MemberIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM chat_members WHERE chat_id = $1 ORDER BY joined_at`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Postgres) RenameChat(ctx context.Context, chatID uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE chats SET name = $1 WHERE id = $2`, name, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// DeleteChat hard-deletes the chat, cascading to its messages and memberships.
func (s *Postgres) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, chatID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_members WHERE chat_id = $1`, chatID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return tx.Commit(ctx)
}

func (s *Postgres) ChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatListItem, error) {
	query := `
		SELECT c.id, c.kind, c.name, c.creator_id, c.last_message_id, c.last_message_at, c.created_at
		FROM chats c
		JOIN chat_members m ON c.id = m.chat_id
		WHERE m.user_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ChatListItem
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.Kind, &c.Name, &c.CreatorID, &c.LastMessageID, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, models.ChatListItem{Chat: c})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if err := s.annotateChat(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Postgres) annotateChat(ctx context.Context, item *models.ChatListItem) error {
	query := `
		SELECT u.id, u.name, u.role
		FROM chat_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.chat_id = $1
		ORDER BY m.joined_at
	`
	rows, err := s.pool.Query(ctx, query, item.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ref models.UserRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Role); err != nil {
			return err
		}
		item.Participants = append(item.Participants, ref)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if item.LastMessageID != nil {
		msg, err := s.MessageByID(ctx, *item.LastMessageID)
		if err != nil && !errors.Is(err, ErrNoRows) {
			return err
		}
		item.LastMessage = msg
	}
	return nil
}

// InsertMessage persists the message and moves the chat's last-message pointer
// in the same transaction, so the cached pointer can never point at a message
// that was not saved.
func (s *Postgres) InsertMessage(ctx context.Context, msg *models.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, chat_id, sender_id, sender_name, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, query, msg.ID, msg.ChatID, msg.SenderID, msg.SenderName, msg.Content).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	update := `UPDATE chats SET last_message_id = $1, last_message_at = $2 WHERE id = $3`
	if _, err := tx.Exec(ctx, update, msg.ID, msg.CreatedAt, msg.ChatID); err != nil {
		return fmt.Errorf("update last-message pointer: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Postgres) MessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, sender_name, content, deleted, edited, edited_at, created_at
		FROM messages WHERE id = $1
	`
	var m models.Message
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Content,
		&m.Deleted, &m.Edited, &m.EditedAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Postgres) UpdateMessage(ctx context.Context, msg *models.Message) error {
	query := `UPDATE messages SET content = $1, deleted = $2, edited = $3, edited_at = $4 WHERE id = $5`
	tag, err := s.pool.Exec(ctx, query, msg.Content, msg.Deleted, msg.Edited, msg.EditedAt, msg.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// MessagesForChat returns the latest messages up to limit, oldest first.
func (s *Postgres) MessagesForChat(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, sender_name, content, deleted, edited, edited_at, created_at
		FROM messages WHERE chat_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Content,
			&m.Deleted, &m.Edited, &m.EditedAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
