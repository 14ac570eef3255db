package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/database"
	"github.com/fanconnect/server/internal/handlers/dto"
	"github.com/fanconnect/server/internal/middleware"
	"github.com/fanconnect/server/internal/models"
)

type GemHandler struct {
	db *database.Database
}

func NewGemHandler(db *database.Database) *GemHandler {
	return &GemHandler{db: db}
}

// Purchase зачисляет гемы. Оплата замокана: запрос сразу превращается в
// purchase-транзакцию.
func (h *GemHandler) Purchase(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.PurchaseGemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := h.db.RecordTransaction(
		userID,
		req.Amount,
		models.TransactionPurchase,
		fmt.Sprintf("Purchased %s package", req.PackageType),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purchase gems"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"transaction": dto.NewTransactionResponse(transaction),
	})
}

// History возвращает транзакции пользователя, новые первыми
func (h *GemHandler) History(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	transactions, err := h.db.GetGemHistory(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get gem history"})
		return
	}

	result := make([]dto.TransactionResponse, len(transactions))
	for i, tx := range transactions {
		result[i] = dto.NewTransactionResponse(&tx)
	}

	c.JSON(http.StatusOK, result)
}
