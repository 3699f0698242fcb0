package repository

import (
	"context"
	"fmt"
	"slices"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// ChatHistoryRepository stores chat exchanges.
type ChatHistoryRepository struct {
	db database.PGXDB
}

// NewChatHistoryRepository creates a new ChatHistoryRepository.
func NewChatHistoryRepository(db database.PGXDB) *ChatHistoryRepository {
	return &ChatHistoryRepository{db: db}
}

// Create saves one exchange.
func (r *ChatHistoryRepository) Create(ctx context.Context, m *models.ChatMessage) error {
	if m.MessageType == "" {
		m.MessageType = models.MessageTypeChat
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_history (user_id, session_id, user_message, agent_response, message_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.UserID, m.SessionID, m.UserMessage, m.AgentResponse, m.MessageType).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return wrap("save chat message", err)
	}
	return nil
}

// ListRecent returns the user's last n exchanges in chronological order.
func (r *ChatHistoryRepository) ListRecent(ctx context.Context, userID int64, n int) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, session_id, user_message, agent_response, message_type, created_at
		FROM chat_history WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.SessionID, &m.UserMessage, &m.AgentResponse, &m.MessageType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

