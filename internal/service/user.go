package service

import (
	"context"
	"errors"
	"strings"

	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

// UserService manages account settings.
type UserService struct {
	users      UserStore
	currencies CurrencyStore
}

// NewUserService creates a UserService.
func NewUserService(users UserStore, currencies CurrencyStore) *UserService {
	return &UserService{users: users, currencies: currencies}
}

// UpdateCurrency sets the user's default currency. The code must be in the catalogue.
func (s *UserService) UpdateCurrency(ctx context.Context, actor Actor, userID int64, code string) (*models.User, error) {
	if err := actor.Authorize(userID); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := s.currencies.GetByCode(ctx, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Field("currency", "unsupported currency "+code)
		}
		return nil, err
	}
	if err := s.users.UpdateDefaultCurrency(ctx, userID, code); err != nil {
		return nil, notFound(err, "User not found")
	}
	return s.Get(ctx, userID)
}

// Get returns a user.
func (s *UserService) Get(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// ByTelegramID returns the user linked to a Telegram account.
func (s *UserService) ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	u, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, notFound(err, "No account is linked to this Telegram user")
	}
	return u, nil
}

// LinkTelegram attaches a Telegram account to the user, detaching it from any other.
func (s *UserService) LinkTelegram(ctx context.Context, userID, telegramID int64) error {
	if err := s.users.LinkTelegram(ctx, userID, telegramID); err != nil {
		return notFound(err, "User not found")
	}
	logger.ForUser(userID).Info().Str("chat_hash", logger.HashChatID(telegramID)).Msg("Telegram linked")
	return nil
}
