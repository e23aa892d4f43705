// Package fakeapi is an in-memory stand-in for the chat backend. It serves
// the same HTTP and WebSocket surface the client consumes and backs the
// client's integration tests and local development.
package fakeapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUserNotFound       = errors.New("User not found")
	ErrChatNotFound       = errors.New("Chat not found")
	ErrAccessDenied       = errors.New("Access denied")
)

// DefaultChatTitle is used when a chat is created without a title.
const DefaultChatTitle = "New Chat"

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
}

// Chat is a stored conversation.
type Chat struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a stored turn.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps users, chats and messages in memory.
type Store struct {
	mu        sync.RWMutex
	hashCost  int
	users     map[string]User
	usersByID map[string]User
	chats     map[string]Chat
	chatOrder []string
	messages  map[string][]Message
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHashCost sets the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) StoreOption {
	return func(s *Store) { s.hashCost = cost }
}

// NewStore bootstraps an empty in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		hashCost:  bcrypt.DefaultCost,
		users:     make(map[string]User),
		usersByID: make(map[string]User),
		chats:     make(map[string]Chat),
		messages:  make(map[string][]Message),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. Emails are matched case-insensitively.
func (s *Store) Register(_ context.Context, name, email, password string) (User, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return User{}, ErrUserExists
	}

	user := User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
	}
	s.users[key] = user
	s.usersByID[user.ID] = user
	return user, nil
}

// Authenticate checks credentials.
func (s *Store) Authenticate(_ context.Context, email, password string) (User, error) {
	s.mu.RLock()
	user, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()

	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID retrieves a user by identifier.
func (s *Store) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// CreateChat provisions a chat owned by userID.
func (s *Store) CreateChat(_ context.Context, userID, title string) Chat {
	if title == "" {
		title = DefaultChatTitle
	}
	now := time.Now().UTC()
	chat := Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.chats[chat.ID] = chat
	s.chatOrder = append(s.chatOrder, chat.ID)
	s.messages[chat.ID] = make([]Message, 0, 16)
	s.mu.Unlock()

	return chat
}

// ListChats returns the chats of userID in creation order.
func (s *Store) ListChats(_ context.Context, userID string) []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]Chat, 0)
	for _, id := range s.chatOrder {
		if chat := s.chats[id]; chat.UserID == userID {
			chats = append(chats, chat)
		}
	}
	return chats
}

// ChatForUser returns chatID if userID owns it.
func (s *Store) ChatForUser(_ context.Context, chatID, userID string) (Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return Chat{}, ErrChatNotFound
	}
	if chat.UserID != userID {
		return Chat{}, ErrAccessDenied
	}
	return chat, nil
}

// SaveMessage appends a message to the chat history.
func (s *Store) SaveMessage(_ context.Context, message Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[message.ChatID]
	if !ok {
		return Message{}, ErrChatNotFound
	}

	message.ID = uuid.NewString()
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	s.messages[message.ChatID] = append(s.messages[message.ChatID], message)

	chat.UpdatedAt = message.Timestamp
	s.chats[chat.ID] = chat
	return message, nil
}

// LoadTranscript returns stored messages for chatID.
func (s *Store) LoadTranscript(_ context.Context, chatID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}

	copied := make([]Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
