package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/models"
)

type PurchaseGemsRequest struct {
	Amount      int    `json:"amount" binding:"required,gt=0"`
	PackageType string `json:"packageType" binding:"required"`
}

type TransactionResponse struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"userId"`
	Amount      int                    `json:"amount"`
	Type        models.TransactionType `json:"type"`
	Description string                 `json:"description,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

func NewTransactionResponse(tx *models.GemTransaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}
