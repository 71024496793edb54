package services

import (
	"fmt"
	"ideaboard/internal/db"
	"ideaboard/internal/models"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, name string) *models.User {
	t.Helper()

	var n int64
	conn.Model(&models.User{}).Count(&n)
	user := models.User{ExternalID: 1000 + n, Username: name}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return &user
}

func createUsers(t *testing.T, conn *gorm.DB, count int) []*models.User {
	t.Helper()

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		users = append(users, createUser(t, conn, fmt.Sprintf("user%d", i)))
	}
	return users
}
