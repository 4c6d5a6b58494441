package handlers

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

const sessionPrefix = "telegram-"

// Sessions maps Telegram chats to chat session ids. A chat starts in telegram-<chat id>
// and /reset moves it to a fresh telegram-<chat id>-<suffix> session.
type Sessions struct {
	mu       sync.RWMutex
	suffixes map[int64]string
	newID    func() string
}

func NewSessions() *Sessions {
	return &Sessions{
		suffixes: make(map[int64]string),
		newID: func() string {
			return uuid.NewString()[:8]
		},
	}
}

// SessionID returns the current session id of the chat
func (s *Sessions) SessionID(chatID int64) string {
	s.mu.RLock()
	suffix := s.suffixes[chatID]
	s.mu.RUnlock()

	return sessionID(chatID, suffix)
}

// Reset starts a new session for the chat and returns its id
func (s *Sessions) Reset(chatID int64) string {
	suffix := s.newID()

	s.mu.Lock()
	s.suffixes[chatID] = suffix
	s.mu.Unlock()

	return sessionID(chatID, suffix)
}

func sessionID(chatID int64, suffix string) string {
	id := sessionPrefix + strconv.FormatInt(chatID, 10)
	if suffix != "" {
		id += "-" + suffix
	}
	return id
}
