package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkerAssignment pairs a worker with a model the worker chats on behalf of.
// Many-to-many: the unique index makes re-assignment idempotent.
type WorkerAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkerID  uuid.UUID `gorm:"not null;uniqueIndex:idx_worker_model"`
	ModelID   uuid.UUID `gorm:"not null;uniqueIndex:idx_worker_model"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time
}

func (a *WorkerAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
