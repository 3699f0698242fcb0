package database

import (
	"context"
	"fmt"
)

// CategorySeed is one category row inserted by SeedCategories.
type CategorySeed struct {
	Name        string
	Description string
	Icon        string
	Color       string
}

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'USER',
			default_currency TEXT NOT NULL DEFAULT 'USD',
			telegram_id BIGINT UNIQUE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '📦',
			color TEXT NOT NULL DEFAULT '#BDC3C7',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_lower ON categories (LOWER(name))`,

		`CREATE TABLE IF NOT EXISTS currencies (
			id SERIAL PRIMARY KEY,
			code VARCHAR(3) NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			name TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			amount DECIMAL(12, 2) NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL DEFAULT 'USD',
			description TEXT NOT NULL DEFAULT '',
			expense_date DATE NOT NULL DEFAULT CURRENT_DATE,
			ai_parsed BOOLEAN NOT NULL DEFAULT FALSE,
			ai_confidence DECIMAL(3, 2),
			original_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, expense_date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category_id ON expenses(category_id)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id INTEGER REFERENCES categories(id),
			budget_limit DECIMAL(12, 2) NOT NULL CHECK (budget_limit > 0),
			period TEXT NOT NULL DEFAULT 'MONTHLY',
			alert_threshold DECIMAL(5, 2),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_budgets_category_active
			ON budgets (user_id, category_id, period) WHERE active AND category_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_budgets_total_active
			ON budgets (user_id, period) WHERE active AND category_id IS NULL`,

		`CREATE TABLE IF NOT EXISTS user_sessions (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			session_id TEXT NOT NULL,
			app_name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS chat_history (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			agent_response TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'CHAT',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_user_created ON chat_history(user_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS ai_parsing_logs (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			original_message TEXT NOT NULL,
			parsed_amount DECIMAL(12, 2),
			parsed_category TEXT NOT NULL DEFAULT '',
			parsed_description TEXT NOT NULL DEFAULT '',
			confidence DECIMAL(3, 2),
			model TEXT NOT NULL DEFAULT '',
			raw_response TEXT NOT NULL DEFAULT '',
			processing_ms BIGINT NOT NULL DEFAULT 0,
			success BOOLEAN NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// SeedCategories inserts the given categories, leaving existing names untouched.
func SeedCategories(ctx context.Context, db PGXDB, seeds []CategorySeed) error {
	for _, cat := range seeds {
		icon := cat.Icon
		if icon == "" {
			icon = "📦"
		}
		color := cat.Color
		if color == "" {
			color = "#BDC3C7"
		}
		_, err := db.Exec(ctx, `
			INSERT INTO categories (name, description, icon, color)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ((LOWER(name))) DO NOTHING
		`, cat.Name, cat.Description, icon, color)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
		}
	}

	return nil
}

// DefaultCurrencies is the currency catalogue seeded on first start.
var DefaultCurrencies = []struct {
	Code, Symbol, Name, Country string
}{
	{"USD", "$", "US Dollar", "United States"},
	{"EUR", "€", "Euro", "European Union"},
	{"GBP", "£", "British Pound", "United Kingdom"},
	{"SGD", "S$", "Singapore Dollar", "Singapore"},
	{"JPY", "¥", "Japanese Yen", "Japan"},
	{"INR", "₹", "Indian Rupee", "India"},
	{"AUD", "A$", "Australian Dollar", "Australia"},
	{"CAD", "C$", "Canadian Dollar", "Canada"},
}

// SeedCurrencies inserts the default currency catalogue.
func SeedCurrencies(ctx context.Context, db PGXDB) error {
	for _, c := range DefaultCurrencies {
		_, err := db.Exec(ctx, `
			INSERT INTO currencies (code, symbol, name, country)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO NOTHING
		`, c.Code, c.Symbol, c.Name, c.Country)
		if err != nil {
			return fmt.Errorf("failed to seed currency %q: %w", c.Code, err)
		}
	}

	return nil
}
