// Package storetest provides an in-memory Store used by the service and
// handler tests. It mirrors the Postgres implementation's semantics: returned
// records are copies, direct chats collapse on the pair key, and inserting a
// message moves the chat's last-message pointer.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"
)

type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	chats    map[uuid.UUID]*models.Chat
	members  map[uuid.UUID][]uuid.UUID
	messages map[uuid.UUID]*models.Message
	byChat   map[uuid.UUID][]uuid.UUID
	pairs    map[string]uuid.UUID
	clock    time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*models.User),
		chats:    make(map[uuid.UUID]*models.Chat),
		members:  make(map[uuid.UUID][]uuid.UUID),
		messages: make(map[uuid.UUID]*models.Message),
		byChat:   make(map[uuid.UUID][]uuid.UUID),
		pairs:    make(map[string]uuid.UUID),
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now hands out strictly increasing timestamps so creation order and
// timestamp order always agree, like a single database clock.
func (s *Store) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// AddUser seeds a user directly, bypassing registration.
func (s *Store) AddUser(name string, role models.Role) *models.User {
	u := &models.User{ID: uuid.New(), Name: name, Role: role}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	out := *u
	return &out
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Name == u.Name {
			return store.ErrDuplicateUser
		}
	}
	u.CreatedAt = s.now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) UserByName(_ context.Context, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == name {
			out := *u
			return &out, nil
		}
	}
	return nil, store.ErrNoRows
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNoRows
	}
	out := *u
	return &out, nil
}

func (s *Store) UserRole(_ context.Context, id uuid.UUID) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return "", store.ErrNoRows
	}
	return u.Role, nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *Store) CreateChat(_ context.Context, chat *models.Chat, memberIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat.Kind == models.ChatKindDirect {
		key := store.DirectPairKey(memberIDs[0], memberIDs[1])
		if _, exists := s.pairs[key]; exists {
			return store.ErrDuplicateChat
		}
		s.pairs[key] = chat.ID
	}

	chat.CreatedAt = s.now()
	cp := *chat
	s.chats[chat.ID] = &cp
	s.members[chat.ID] = append([]uuid.UUID(nil), memberIDs...)
	return nil
}

func (s *Store) ChatByID(_ context.Context, id uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCopy(id)
}

// chatCopy must be called with the lock held.
func (s *Store) chatCopy(id uuid.UUID) (*models.Chat, error) {
	c, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (s *Store) DirectChatBetween(_ context.Context, a, b uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pairs[store.DirectPairKey(a, b)]
	if !ok {
		return nil, store.ErrNoRows
	}
	return s.chatCopy(id)
}

func (s *Store) IsMember(_ context.Context, chatID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.members[chatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) MemberIDs(_ context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.members[chatID]...), nil
}

func (s *Store) RenameChat(_ context.Context, chatID uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return store.ErrNoRows
	}
	c.Name = &name
	return nil
}

func (s *Store) DeleteChat(_ context.Context, chatID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return store.ErrNoRows
	}
	for _, msgID := range s.byChat[chatID] {
		delete(s.messages, msgID)
	}
	delete(s.byChat, chatID)
	delete(s.members, chatID)
	if c.Kind == models.ChatKindDirect {
		for key, id := range s.pairs {
			if id == chatID {
				delete(s.pairs, key)
			}
		}
	}
	delete(s.chats, chatID)
	return nil
}

func (s *Store) ChatsForUser(_ context.Context, userID uuid.UUID) ([]models.ChatListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.ChatListItem
	for chatID, memberIDs := range s.members {
		member := false
		for _, id := range memberIDs {
			if id == userID {
				member = true
				break
			}
		}
		if !member {
			continue
		}

		chat, err := s.chatCopy(chatID)
		if err != nil {
			continue
		}
		item := models.ChatListItem{Chat: *chat}
		for _, id := range memberIDs {
			if u, ok := s.users[id]; ok {
				item.Participants = append(item.Participants, models.UserRef{ID: u.ID, Name: u.Name, Role: u.Role})
			}
		}
		if chat.LastMessageID != nil {
			if m, ok := s.messages[*chat.LastMessageID]; ok {
				cp := *m
				item.LastMessage = &cp
			}
		}
		items = append(items, item)
	}

	activity := func(it models.ChatListItem) time.Time {
		if it.LastMessageAt != nil {
			return *it.LastMessageAt
		}
		return it.CreatedAt
	}
	sort.Slice(items, func(i, j int) bool { return activity(items[i]).After(activity(items[j])) })
	return items, nil
}

func (s *Store) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[msg.ChatID]
	if !ok {
		return store.ErrNoRows
	}

	msg.CreatedAt = s.now()
	cp := *msg
	s.messages[msg.ID] = &cp
	s.byChat[msg.ChatID] = append(s.byChat[msg.ChatID], msg.ID)

	id := msg.ID
	at := msg.CreatedAt
	c.LastMessageID = &id
	c.LastMessageAt = &at
	return nil
}

func (s *Store) MessageByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNoRows
	}
	out := *m
	return &out, nil
}

func (s *Store) UpdateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; !ok {
		return store.ErrNoRows
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *Store) MessagesForChat(_ context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byChat[chatID]
	start := 0
	if limit > 0 && len(ids) > limit {
		start = len(ids) - limit
	}
	var messages []models.Message
	for _, id := range ids[start:] {
		if m, ok := s.messages[id]; ok {
			messages = append(messages, *m)
		}
	}
	return messages, nil
}
