// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"testing"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/database"
	"gorm.io/gorm"
)

// New returns a freshly migrated in-memory database that is closed when t ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{URL: "sqlite://:memory:"}, false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
