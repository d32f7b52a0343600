package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"extfilter/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupExtensionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := SetupDB(
		WithDialector(sqlite.Open(dsn)),
		WithLogger(logger.Default.LogMode(logger.Silent)),
	)
	if err != nil {
		t.Fatalf("setup test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// One connection keeps the shared in-memory database alive and serialises
	// sqlite writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	t.Cleanup(func() {
		_ = CloseDB(db)
	})

	return db
}

func seedDefaultFixed(t *testing.T, db *gorm.DB) *FixedExtensionRegistry {
	t.Helper()

	fixed := NewFixedExtensionRegistry(db)
	if _, err := fixed.Seed(context.Background(), domain.DefaultFixedExtensions); err != nil {
		t.Fatalf("seed fixed extensions: %v", err)
	}
	return fixed
}
