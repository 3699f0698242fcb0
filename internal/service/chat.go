package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/telemetry"
)

const (
	historyContextSize  = 10
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Agent answers a prompt on behalf of a user.
type Agent interface {
	Run(ctx context.Context, userID int64, prompt string, categories []string) (string, error)
}

// ChatReply is the agent's answer to one message.
type ChatReply struct {
	Response       string    `json:"response"`
	UserID         int64     `json:"userId"`
	SessionID      string    `json:"sessionId"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatHealth reports whether chat can serve requests.
type ChatHealth struct {
	Status          string `json:"status"`
	AgentConfigured bool   `json:"agentConfigured"`
}

// ChatService relays messages to the agent and keeps the conversation history.
type ChatService struct {
	agent      Agent
	sessions   *SessionService
	history    ChatHistoryStore
	categories *CategoryService
	metrics    *telemetry.Metrics
	clock      Clock
}

// NewChatService creates a ChatService. agent may be nil when no LLM is configured.
func NewChatService(agent Agent, sessions *SessionService, history ChatHistoryStore, categories *CategoryService, metrics *telemetry.Metrics, clock Clock) *ChatService {
	return &ChatService{
		agent:      agent,
		sessions:   sessions,
		history:    history,
		categories: categories,
		metrics:    metrics,
		clock:      clock,
	}
}

// Send runs one message through the agent with recent history as context.
func (s *ChatService) Send(ctx context.Context, userID int64, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Field("message", "must not be empty")
	}
	if s.agent == nil {
		return nil, apperr.Chat(nil, "Chat agent is not configured")
	}

	sess, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.history.ListRecent(ctx, userID, historyContextSize)
	if err != nil {
		return nil, apperr.Chat(err, "Failed to load conversation history")
	}
	names, err := s.categories.Names(ctx)
	if err != nil {
		return nil, apperr.Chat(err, "Failed to load categories")
	}

	start := time.Now()
	response, err := s.agent.Run(ctx, userID, buildPrompt(recent, message), names)
	s.metrics.AgentDuration(ctx, time.Since(start))
	if err != nil {
		logger.ForUser(userID).Error().Err(err).Msg("Agent failed")
		return nil, apperr.Chat(err, "Failed to process your message. Please try again.")
	}

	if err := s.history.Create(ctx, &models.ChatMessage{
		UserID:        userID,
		SessionID:     sess.SessionID,
		UserMessage:   message,
		AgentResponse: response,
		MessageType:   models.MessageTypeChat,
	}); err != nil {
		logger.ForUser(userID).Warn().Err(err).Msg("Failed to save chat history")
	}
	if err := s.sessions.Touch(ctx, userID); err != nil {
		logger.ForUser(userID).Warn().Err(err).Msg("Failed to touch session")
	}
	s.metrics.ChatMessage(ctx)

	logger.ForUser(userID).Debug().
		Str("message", logger.SanitizeText(message)).
		Dur("duration", time.Since(start)).
		Msg("Chat message handled")

	return &ChatReply{
		Response:       response,
		UserID:         userID,
		SessionID:      sess.SessionID,
		ConversationID: uuid.NewString(),
		Timestamp:      s.clock.now(),
	}, nil
}

func buildPrompt(history []models.ChatMessage, message string) string {
	if len(history) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString("Previous conversation history:\n")
	for _, m := range history {
		b.WriteString("User: " + m.UserMessage + "\n")
		b.WriteString("Assistant: " + m.AgentResponse + "\n")
		b.WriteString("\n")
	}
	b.WriteString("\nCurrent message:\n" + message)
	return b.String()
}

// History returns the user's recent exchanges, oldest first. Zero means 20.
func (s *ChatService) History(ctx context.Context, userID int64, limit int) ([]models.ChatMessage, error) {
	switch {
	case limit == 0:
		limit = defaultHistoryLimit
	case limit < 0 || limit > maxHistoryLimit:
		return nil, apperr.Field("limit", "must be between 1 and 100")
	}
	msgs, err := s.history.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

// Reset discards the user's chat session.
func (s *ChatService) Reset(ctx context.Context, userID int64) (string, error) {
	return s.sessions.Reset(ctx, userID)
}

// Health reports whether the agent is configured.
func (s *ChatService) Health() ChatHealth {
	if s.agent == nil {
		return ChatHealth{Status: "DOWN"}
	}
	return ChatHealth{Status: "UP", AgentConfigured: true}
}
