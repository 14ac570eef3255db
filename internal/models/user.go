package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account kinds the platform knows about.
type Role string

const (
	RoleFan    Role = "fan"
	RoleModel  Role = "model"
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFan, RoleModel, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"not null"`
	Bio          string
	ProfileImage string
	IsActive     bool `gorm:"default:true"`
	// Gems is only meaningful for fans; never allowed below zero.
	Gems      int `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
