package repository

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devfolio/devfolio-server/internal/domain"
)

// newTestDB opens a per-test in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.RefreshToken{},
		&domain.CommunityPost{},
		&domain.CommunityLike{},
		&domain.Portfolio{},
		&domain.PortfolioLike{},
	); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, loginID, nickname string) *domain.User {
	t.Helper()
	u := &domain.User{
		LoginID:      loginID,
		Email:        loginID + "@example.com",
		Nickname:     nickname,
		PasswordHash: "x",
		AuthProvider: domain.ProviderLocal,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", loginID, err)
	}
	return u
}
