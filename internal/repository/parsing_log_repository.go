package repository

import (
	"context"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// ParsingLogRepository records natural-language parsing attempts.
type ParsingLogRepository struct {
	db database.PGXDB
}

// NewParsingLogRepository creates a new ParsingLogRepository.
func NewParsingLogRepository(db database.PGXDB) *ParsingLogRepository {
	return &ParsingLogRepository{db: db}
}

// Create stores one attempt.
func (r *ParsingLogRepository) Create(ctx context.Context, l *models.ParsingLog) error {
	var amount, confidence any
	if l.ParsedAmount != nil {
		amount = *l.ParsedAmount
	}
	if l.Confidence != nil {
		confidence = *l.Confidence
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO ai_parsing_logs (user_id, original_message, parsed_amount, parsed_category,
			parsed_description, confidence, model, raw_response, processing_ms, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, l.UserID, l.OriginalMessage, amount, l.ParsedCategory, l.ParsedDescription, confidence,
		l.Model, l.RawResponse, l.ProcessingMs, l.Success, l.ErrorMessage,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return wrap("save parsing log", err)
	}
	return nil
}
