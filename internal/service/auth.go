package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/auth"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength   = 45
	usernameAttempts    = 10
	minPasswordLength   = 8
	invalidCredentials  = "invalid credentials"
	invalidRefreshToken = "invalid or expired refresh token"
)

// RegisterRequest is the input to AuthService.Register.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
	Username  string `json:"username" binding:"omitempty,min=3,max=50"`
}

// AuthResult is returned by every operation that issues tokens.
type AuthResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

// AuthService registers users and issues access and refresh tokens.
type AuthService struct {
	users      UserStore
	tokens     RefreshTokenStore
	issuer     *auth.TokenIssuer
	refreshTTL time.Duration
	hashCost   int
	validate   *validator.Validate
	clock      Clock
}

// NewAuthService creates an AuthService.
func NewAuthService(users UserStore, tokens RefreshTokenStore, issuer *auth.TokenIssuer, refreshTTL time.Duration, clock Clock) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		hashCost:   bcrypt.DefaultCost,
		validate:   validator.New(),
		clock:      clock,
	}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	fields := map[string]string{}
	if err := s.validate.Var(req.Email, "required,email"); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(req.Password) < minPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("Email is already registered")
	}

	username := req.Username
	if username != "" {
		taken, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("Username is already taken")
		}
	} else if username, err = s.deriveUsername(ctx, req.Email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:        username,
		Email:           req.Email,
		PasswordHash:    string(hash),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Role:            models.RoleUser,
		DefaultCurrency: models.DefaultCurrency,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email is already registered")
		}
		return nil, err
	}

	logger.ForUser(user.ID).Info().Str("email", logger.SanitizeEmail(user.Email)).Msg("User registered")
	return s.issue(ctx, user)
}

// deriveUsername builds a username from the email local part, appending a
// random 4-digit suffix until it is free.
func (s *AuthService) deriveUsername(ctx context.Context, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	if r := []rune(base); len(r) > maxUsernameLength {
		base = string(r[:maxUsernameLength])
	}

	taken, err := s.users.ExistsByUsername(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for range usernameAttempts {
		candidate := fmt.Sprintf("%s%04d", base, rand.IntN(10000))
		taken, err := s.users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperr.Conflict("Could not generate a unique username, please choose one")
}

// Login authenticates by username or email.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := s.Verify(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	now := s.clock.now()
	user.LastLogin = &now

	logger.ForUser(user.ID).Info().Msg("User logged in")
	return s.issue(ctx, user)
}

// Verify checks credentials without issuing tokens.
func (s *AuthService) Verify(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.users.GetByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized(invalidCredentials)
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized(invalidCredentials)
	}
	return user, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*AuthResult, error) {
	hash := auth.HashRefreshToken(strings.TrimSpace(raw))
	stored, err := s.tokens.GetValid(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized(invalidRefreshToken)
		}
		return nil, err
	}
	revoked, err := s.tokens.Revoke(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, apperr.Unauthorized(invalidRefreshToken)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, notFound(err, invalidRefreshToken)
	}
	if !user.Active {
		return nil, apperr.Unauthorized(invalidRefreshToken)
	}
	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	_, err := s.tokens.Revoke(ctx, auth.HashRefreshToken(strings.TrimSpace(raw)))
	return err
}

// LogoutAll revokes every refresh token of the user, ending all sessions
// once their access tokens expire.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	logger.ForUser(userID).Info().Msg("Revoked all refresh tokens")
	return nil
}

// Me returns the user behind an access token.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return user, nil
}

// PurgeExpiredTokens deletes refresh tokens that expired before now.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx, s.clock.now())
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	access, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	raw, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: s.clock.now().Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.issuer.TTL().Seconds()),
		User:         user,
	}, nil
}
