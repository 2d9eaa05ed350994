package services

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/models"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Profile{}, &models.Subscription{},
		&models.DiscountCode{}, &models.ContentHistory{}, &models.PromptHistory{},
		&models.Session{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
