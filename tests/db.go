package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/storage/database"
)

const dbTables = "certificates, webhook_events, payments, completed_lessons, enrollments, lessons, sections, courses, profiles"

// PrepareDB returns a migrated, empty test database.
// The test is skipped unless TEST_DATABASE_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	t.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE " + dbTables + " CASCADE"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
