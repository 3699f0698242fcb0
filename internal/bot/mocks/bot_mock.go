// Package mocks provides test doubles for the Telegram relay.
package mocks

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI is the subset of the Telegram client the relay calls.
// It lives here so the bot package and its tests can share it without a cycle.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// SentMessage captures a message sent via MockBot.
type SentMessage struct {
	ChatID    any
	Text      string
	ParseMode models.ParseMode
}

// SentDocument captures a document sent via MockBot.
type SentDocument struct {
	ChatID    any
	Filename  string
	Caption   string
	ParseMode models.ParseMode
	Size      int
}

// DeletedMessage captures a deletion request.
type DeletedMessage struct {
	ChatID    any
	MessageID int
}

var _ TelegramAPI = (*MockBot)(nil)

// MockBot records relay output for assertions.
type MockBot struct {
	mu sync.RWMutex

	SentMessages    []SentMessage
	SentDocuments   []SentDocument
	DeletedMessages []DeletedMessage

	// SendMessageError allows simulating SendMessage failures.
	SendMessageError error
	// SendDocumentError allows simulating SendDocument failures.
	SendDocumentError error
	// DeleteMessageError allows simulating DeleteMessage failures.
	DeleteMessageError error

	// NextMessageID is auto-incremented for each sent message.
	NextMessageID int
}

// NewMockBot creates a new MockBot instance.
func NewMockBot() *MockBot {
	return &MockBot{
		SentMessages:    make([]SentMessage, 0),
		SentDocuments:   make([]SentDocument, 0),
		DeletedMessages: make([]DeletedMessage, 0),
		NextMessageID:   1000,
	}
}

// SendMessage simulates sending a message.
func (m *MockBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}

	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:    params.ChatID,
		Text:      params.Text,
		ParseMode: params.ParseMode,
	})

	msgID := m.NextMessageID
	m.NextMessageID++

	return &models.Message{
		ID:   msgID,
		Chat: models.Chat{ID: chatIDToInt64(params.ChatID)},
		Text: params.Text,
	}, nil
}

// SendDocument records the document and the size of an uploaded payload.
func (m *MockBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendDocumentError != nil {
		return nil, m.SendDocumentError
	}

	doc := SentDocument{
		ChatID:    params.ChatID,
		Caption:   params.Caption,
		ParseMode: params.ParseMode,
	}
	if upload, ok := params.Document.(*models.InputFileUpload); ok {
		doc.Filename = upload.Filename
		if sized, ok := upload.Data.(interface{ Len() int }); ok {
			doc.Size = sized.Len()
		}
	}
	m.SentDocuments = append(m.SentDocuments, doc)

	msgID := m.NextMessageID
	m.NextMessageID++

	return &models.Message{
		ID:      msgID,
		Chat:    models.Chat{ID: chatIDToInt64(params.ChatID)},
		Caption: params.Caption,
		Document: &models.Document{
			FileID:   "mock_file_id",
			FileName: doc.Filename,
		},
	}, nil
}

// DeleteMessage simulates deleting a message.
func (m *MockBot) DeleteMessage(_ context.Context, params *bot.DeleteMessageParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteMessageError != nil {
		return false, m.DeleteMessageError
	}
	m.DeletedMessages = append(m.DeletedMessages, DeletedMessage{
		ChatID:    params.ChatID,
		MessageID: params.MessageID,
	})
	return true, nil
}

// LastSentMessage returns the most recently sent message, or nil if none.
func (m *MockBot) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentMessages) == 0 {
		return nil
	}
	return &m.SentMessages[len(m.SentMessages)-1]
}

// SentMessageCount returns the number of messages sent.
func (m *MockBot) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

// LastSentDocument returns the most recently sent document, or nil if none.
func (m *MockBot) LastSentDocument() *SentDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentDocuments) == 0 {
		return nil
	}
	return &m.SentDocuments[len(m.SentDocuments)-1]
}

// SentDocumentCount returns the number of documents sent.
func (m *MockBot) SentDocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentDocuments)
}

// DeletedMessageCount returns the number of deletions requested.
func (m *MockBot) DeletedMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.DeletedMessages)
}

func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
