package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// CurrencyRepository handles the currency catalogue.
type CurrencyRepository struct {
	db database.PGXDB
}

// NewCurrencyRepository creates a new CurrencyRepository.
func NewCurrencyRepository(db database.PGXDB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

// List returns all currencies ordered by code.
func (r *CurrencyRepository) List(ctx context.Context) ([]models.Currency, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, symbol, name, country FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	var out []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Symbol, &c.Name, &c.Country); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currencies: %w", err)
	}
	return out, nil
}

// GetByID retrieves a currency by ID.
func (r *CurrencyRepository) GetByID(ctx context.Context, id int) (*models.Currency, error) {
	var c models.Currency
	err := r.db.QueryRow(ctx, `SELECT id, code, symbol, name, country FROM currencies WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Symbol, &c.Name, &c.Country)
	if err != nil {
		return nil, wrap("get currency", err)
	}
	return &c, nil
}

// GetByCode retrieves a currency by its ISO code, ignoring case.
func (r *CurrencyRepository) GetByCode(ctx context.Context, code string) (*models.Currency, error) {
	var c models.Currency
	err := r.db.QueryRow(ctx, `SELECT id, code, symbol, name, country FROM currencies WHERE code = UPPER($1)`, code).
		Scan(&c.ID, &c.Code, &c.Symbol, &c.Name, &c.Country)
	if err != nil {
		return nil, wrap("get currency by code", err)
	}
	return &c, nil
}

// Create adds a currency.
func (r *CurrencyRepository) Create(ctx context.Context, c *models.Currency) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO currencies (code, symbol, name, country) VALUES (UPPER($1), $2, $3, $4)
		RETURNING id, code
	`, c.Code, c.Symbol, c.Name, c.Country).Scan(&c.ID, &c.Code)
	if err != nil {
		return wrap("create currency", err)
	}
	return nil
}

// Update overwrites a currency.
func (r *CurrencyRepository) Update(ctx context.Context, c *models.Currency) error {
	err := r.db.QueryRow(ctx, `
		UPDATE currencies SET code = UPPER($2), symbol = $3, name = $4, country = $5
		WHERE id = $1
		RETURNING code
	`, c.ID, c.Code, c.Symbol, c.Name, c.Country).Scan(&c.Code)
	if err != nil {
		return wrap("update currency", err)
	}
	return nil
}

// Delete removes a currency.
func (r *CurrencyRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM currencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete currency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete currency: %w", ErrNotFound)
	}
	return nil
}
