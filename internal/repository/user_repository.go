package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, role,
	default_currency, telegram_id, active, last_login, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role,
		&u.DefaultCurrency, &u.TelegramID, &u.Active, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// Create inserts a new user and fills in the generated fields.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.DefaultCurrency == "" {
		user.DefaultCurrency = models.DefaultCurrency
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, role, default_currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, active, created_at, updated_at
	`, user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		string(user.Role), user.DefaultCurrency,
	).Scan(&user.ID, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return wrap("create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get user", err)
	}
	return u, nil
}

// GetByUsernameOrEmail resolves a login identifier.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username = $1 OR LOWER(email) = LOWER($1)
		ORDER BY (username = $1) DESC
		LIMIT 1
	`, identifier))
	if err != nil {
		return nil, wrap("get user by identifier", err)
	}
	return u, nil
}

// GetByTelegramID retrieves the user linked to a Telegram account.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
	if err != nil {
		return nil, wrap("get user by telegram id", err)
	}
	return u, nil
}

// ExistsByUsername reports whether the username is taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// ExistsByEmail reports whether the email is registered, ignoring case.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin stamps the user's last login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpdateDefaultCurrency sets the user's default currency.
func (r *UserRepository) UpdateDefaultCurrency(ctx context.Context, id int64, currency string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET default_currency = $2, updated_at = NOW() WHERE id = $1
	`, id, currency)
	if err != nil {
		return fmt.Errorf("failed to update default currency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update default currency: %w", ErrNotFound)
	}
	return nil
}

// LinkTelegram associates a Telegram account with the user, unlinking it from anyone else.
func (r *UserRepository) LinkTelegram(ctx context.Context, id, telegramID int64) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE users SET telegram_id = NULL, updated_at = NOW() WHERE telegram_id = $1 AND id <> $2
	`, telegramID, id); err != nil {
		return fmt.Errorf("failed to unlink telegram id: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET telegram_id = $2, updated_at = NOW() WHERE id = $1
	`, id, telegramID)
	if err != nil {
		return wrap("link telegram id", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to link telegram id: %w", ErrNotFound)
	}
	return nil
}
