package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

// AppName is stored on every chat session row.
const AppName = "finance-concierge"

const (
	resetMessage   = "Session reset. Starting a fresh conversation."
	noResetMessage = "No active session found. A new one will start with your next message."
)

// SessionService tracks one active chat session per user. Sessions are cached
// in process and persisted so they survive restarts.
type SessionService struct {
	store SessionStore

	mu    sync.RWMutex
	cache map[int64]*models.ChatSession
}

// NewSessionService creates a SessionService.
func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{store: store, cache: make(map[int64]*models.ChatSession)}
}

// GetOrCreate returns the user's active session, creating one if needed.
func (s *SessionService) GetOrCreate(ctx context.Context, userID int64) (*models.ChatSession, error) {
	s.mu.RLock()
	sess, ok := s.cache[userID]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.cache[userID]; ok {
		return sess, nil
	}

	sess, err := s.store.GetActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Session(err, "Failed to load chat session")
	}
	if sess == nil {
		sess = &models.ChatSession{UserID: userID, SessionID: uuid.NewString(), AppName: AppName}
		if err := s.store.Upsert(ctx, sess); err != nil {
			return nil, apperr.Session(err, "Failed to create chat session")
		}
		logger.ForUser(userID).Info().Str("session_id", sess.SessionID).Msg("Chat session created")
	}
	s.cache[userID] = sess
	return sess, nil
}

// Reset discards the user's session. The returned message says whether one existed.
func (s *SessionService) Reset(ctx context.Context, userID int64) (string, error) {
	s.mu.Lock()
	_, cached := s.cache[userID]
	delete(s.cache, userID)
	s.mu.Unlock()

	existed, err := s.store.Deactivate(ctx, userID)
	if err != nil {
		return "", apperr.Session(err, "Failed to reset chat session")
	}
	if cached || existed {
		logger.ForUser(userID).Info().Msg("Chat session reset")
		return resetMessage, nil
	}
	return noResetMessage, nil
}

// HasSession reports whether the user has a cached session.
func (s *SessionService) HasSession(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[userID]
	return ok
}

// Touch records activity on the user's session.
func (s *SessionService) Touch(ctx context.Context, userID int64) error {
	if err := s.store.Touch(ctx, userID); err != nil {
		return apperr.Session(err, "Failed to update chat session")
	}
	return nil
}

// SweepIdle deactivates sessions idle since before and evicts them from the
// cache. It returns how many were swept.
func (s *SessionService) SweepIdle(ctx context.Context, before time.Time) (int, error) {
	users, err := s.store.DeactivateIdle(ctx, before)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	for _, id := range users {
		delete(s.cache, id)
	}
	s.mu.Unlock()
	return len(users), nil
}
