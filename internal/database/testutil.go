package database

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestCategories is the category set seeded into test databases.
var TestCategories = []CategorySeed{
	{Name: "Food", Icon: "🍔", Color: "#FF6B6B"},
	{Name: "Transport", Icon: "🚗", Color: "#4ECDC4"},
	{Name: "Entertainment", Icon: "🎬", Color: "#45B7D1"},
	{Name: "Bills", Icon: "📄", Color: "#96CEB4"},
	{Name: "Other", Icon: "📦", Color: "#BDC3C7"},
}

// TestDB returns a database connection pool for testing.
// Skips the test if TEST_DATABASE_URL is not set.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	pool, err := Connect(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	t.Cleanup(pool.Close)

	return pool
}

// CleanupTables truncates all user-owned tables for a clean test state.
func CleanupTables(t *testing.T, db PGXDB) {
	t.Helper()

	tables := []string{
		"refresh_tokens", "ai_parsing_logs", "chat_history", "user_sessions",
		"budgets", "expenses", "users",
	}
	for _, table := range tables {
		if _, err := db.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}
