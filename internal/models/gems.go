package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionSpend    TransactionType = "spend"
	TransactionEarn     TransactionType = "earn"
)

// GemTransaction records a single balance change. Amount is stored as a
// positive magnitude; Type decides the sign applied to the balance.
type GemTransaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"not null;index"`
	Amount      int             `gorm:"not null"`
	Type        TransactionType `gorm:"not null"`
	Description string
	CreatedAt   time.Time
}

func (t *GemTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
