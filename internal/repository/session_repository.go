package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// SessionRepository persists chat sessions, one row per user.
type SessionRepository struct {
	db database.PGXDB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db database.PGXDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetActiveByUser returns the user's active session.
func (r *SessionRepository) GetActiveByUser(ctx context.Context, userID int64) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, session_id, app_name, is_active, last_activity, created_at
		FROM user_sessions WHERE user_id = $1 AND is_active
	`, userID).Scan(&s.ID, &s.UserID, &s.SessionID, &s.AppName, &s.Active, &s.LastActivity, &s.CreatedAt)
	if err != nil {
		return nil, wrap("get active session", err)
	}
	return &s, nil
}

// Upsert stores s as the user's active session, replacing any previous row.
func (r *SessionRepository) Upsert(ctx context.Context, s *models.ChatSession) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_sessions (user_id, session_id, app_name, is_active, last_activity)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			app_name = EXCLUDED.app_name,
			is_active = TRUE,
			last_activity = NOW()
		RETURNING id, is_active, last_activity, created_at
	`, s.UserID, s.SessionID, s.AppName).Scan(&s.ID, &s.Active, &s.LastActivity, &s.CreatedAt)
	if err != nil {
		return wrap("upsert session", err)
	}
	return nil
}

// Deactivate marks the user's session inactive. It reports whether an active row existed.
func (r *SessionRepository) Deactivate(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active
	`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Touch refreshes last_activity on the user's active session.
func (r *SessionRepository) Touch(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE user_sessions SET last_activity = NOW() WHERE user_id = $1 AND is_active
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// DeactivateIdle deactivates sessions idle since before and returns their owners.
func (r *SessionRepository) DeactivateIdle(ctx context.Context, before time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE user_sessions SET is_active = FALSE
		WHERE is_active AND last_activity < $1
		RETURNING user_id
	`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate idle sessions: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session owner: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating idle sessions: %w", err)
	}
	return users, nil
}
