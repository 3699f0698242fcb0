package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/database"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

var userSeq atomic.Int64

// newTestUser inserts a uniquely named user into db.
func newTestUser(t *testing.T, db database.PGXDB) *models.User {
	t.Helper()

	n := userSeq.Add(1)
	u := &models.User{
		Username:     fmt.Sprintf("tester%d", n),
		Email:        fmt.Sprintf("tester%d@example.com", n),
		PasswordHash: "hash",
		FirstName:    "Test",
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func mustCategory(t *testing.T, db database.PGXDB, name string) *models.Category {
	t.Helper()

	c, err := NewCategoryRepository(db).GetByName(context.Background(), name)
	require.NoError(t, err)
	return c
}

// inSavepoint runs fn inside a savepoint and rolls back to it afterwards, so a
// statement that fails on purpose does not abort the surrounding test transaction.
func inSavepoint(t *testing.T, db database.PGXDB, fn func()) {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx, "SAVEPOINT expect_failure")
	require.NoError(t, err)
	fn()
	_, err = db.Exec(ctx, "ROLLBACK TO SAVEPOINT expect_failure")
	require.NoError(t, err)
}
