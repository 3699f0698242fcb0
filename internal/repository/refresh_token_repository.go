package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// RefreshTokenRepository stores hashed refresh tokens.
type RefreshTokenRepository struct {
	db database.PGXDB
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(db database.PGXDB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a token hash.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, t.UserID, t.TokenHash, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return wrap("store refresh token", err)
	}
	return nil
}

// GetValid returns the unrevoked, unexpired token with the given hash.
func (r *RefreshTokenRepository) GetValid(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND NOT revoked AND expires_at > NOW()
	`, hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return nil, wrap("get refresh token", err)
	}
	return &t, nil
}

// Revoke marks a token revoked. It reports whether a live token matched.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, hash string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1 AND NOT revoked`, hash)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every live token of a user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// PurgeExpired deletes tokens that expired or were revoked before the cutoff.
func (r *RefreshTokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < $1 OR (revoked AND created_at < $1)
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
