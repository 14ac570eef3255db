package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/models"
)

// MessageResponse is the wire shape of a message, used both in REST bodies
// and inside new_message / message_sent frames.
type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
	GemCost    int       `json:"gemCost"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewMessageResponse(msg *models.Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		GemCost:    msg.GemCost,
		IsRead:     msg.IsRead,
		CreatedAt:  msg.CreatedAt,
	}
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required,uuid"`
	Content    string `json:"content" binding:"required"`
}

// ConversationSummary is one entry of a worker's conversation overview:
// the fan/model pair plus the most recent message between them.
type ConversationSummary struct {
	ID          string          `json:"id"`
	Fan         UserResponse    `json:"fan"`
	Model       UserResponse    `json:"model"`
	LastMessage MessageResponse `json:"lastMessage"`
}
