package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=64"`
	Role     string `json:"role" binding:"required,oneof=fan model worker admin"`
	Bio      string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public shape of a user. The password hash never
// leaves the server.
type UserResponse struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	Bio          string      `json:"bio,omitempty"`
	ProfileImage string      `json:"profileImage,omitempty"`
	IsActive     bool        `json:"isActive"`
	Gems         int         `json:"gems"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func NewUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		Bio:          user.Bio,
		ProfileImage: user.ProfileImage,
		IsActive:     user.IsActive,
		Gems:         user.Gems,
		CreatedAt:    user.CreatedAt,
	}
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
