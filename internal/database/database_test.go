package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fanconnect/server/internal/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Each pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewDatabase(db)
}

var userSeq int

func createUser(t *testing.T, d *Database, role models.Role, gems int) *models.User {
	t.Helper()

	userSeq++
	user := &models.User{
		Username:     fmt.Sprintf("user%d", userSeq),
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		Gems:         gems,
		CreatedAt:    time.Now(),
	}
	if err := d.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return user
}

func createMessage(t *testing.T, d *Database, sender, receiver uuid.UUID, content string, at time.Time) *models.Message {
	t.Helper()

	msg := &models.Message{
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		GemCost:    1,
		CreatedAt:  at,
	}
	if err := d.SaveMessage(msg); err != nil {
		t.Fatalf("save message: %v", err)
	}
	return msg
}
