package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is append-only: nothing in the server mutates a message after
// creation except the read flag.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID `gorm:"not null;index"`
	ReceiverID uuid.UUID `gorm:"not null;index"`
	Content    string    `gorm:"not null"`
	GemCost    int       `gorm:"not null;default:1"`
	IsRead     bool      `gorm:"default:false"`
	CreatedAt  time.Time `gorm:"index"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
