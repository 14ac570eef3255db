package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/database"
	"github.com/fanconnect/server/internal/handlers/dto"
	"github.com/fanconnect/server/internal/middleware"
	"github.com/fanconnect/server/internal/models"
)

// HTTPMessageHandler serves the REST message path. It applies the same
// policy as the live channel: fans are charged, balance is checked before
// anything is persisted, a failed debit after persistence is logged and
// swallowed.
type HTTPMessageHandler struct {
	db *database.Database
}

func NewHTTPMessageHandler(db *database.Database) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db}
}

// GetConversation получает историю переписки с собеседником
func (h *HTTPMessageHandler) GetConversation(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	counterpartID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	// Opening a conversation counts as reading it; the fetch below then
	// returns the messages already flagged.
	if err := h.db.MarkConversationRead(userID, counterpartID); err != nil {
		log.Printf("Failed to mark conversation read for %s: %v", userID, err)
	}

	messages, err := h.db.GetConversation(userID, counterpartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	result := make([]dto.MessageResponse, len(messages))
	for i, msg := range messages {
		result[i] = dto.NewMessageResponse(&msg)
	}

	c.JSON(http.StatusOK, result)
}

// SendMessage отправляет сообщение через HTTP (альтернатива WebSocket)
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	role := c.MustGet(middleware.RoleKey).(models.Role)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}

	if role == models.RoleFan {
		ok, err := h.db.CanAfford(userID, messageGemCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check gem balance"})
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient gems"})
			return
		}
	}

	message := &models.Message{
		SenderID:   userID,
		ReceiverID: receiverID,
		Content:    req.Content,
		GemCost:    messageGemCost,
	}

	if err := h.db.SaveMessage(message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	if role == models.RoleFan {
		if _, err := h.db.RecordTransaction(userID, message.GemCost, models.TransactionSpend, "Message sent"); err != nil {
			log.Printf("Failed to debit gems for %s: %v", userID, err)
		}
	}

	c.JSON(http.StatusCreated, dto.NewMessageResponse(message))
}
