// Package repository provides database access for domain entities.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert or update violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)

const uniqueViolation = "23505"

// wrap annotates err with the failed action and maps well-known driver errors
// onto the package sentinels so callers can use errors.Is.
func wrap(action string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", action, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("failed to %s: %w: %s", action, ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
