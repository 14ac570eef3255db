package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/database"
	"github.com/fanconnect/server/internal/handlers/dto"
	"github.com/fanconnect/server/internal/middleware"
)

type WorkerHandler struct {
	db *database.Database
}

func NewWorkerHandler(db *database.Database) *WorkerHandler {
	return &WorkerHandler{db: db}
}

// GetAssignments возвращает модели, закрепленные за воркером
func (h *WorkerHandler) GetAssignments(c *gin.Context) {
	workerID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	assigned, err := h.db.GetAssignedModels(workerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get assignments"})
		return
	}

	result := make([]dto.UserResponse, len(assigned))
	for i, model := range assigned {
		result[i] = dto.NewUserResponse(&model)
	}

	c.JSON(http.StatusOK, result)
}

// GetConversations строит сводку переписок по всем закрепленным моделям:
// для каждой пары (фан, модель) — последнее сообщение между ними.
func (h *WorkerHandler) GetConversations(c *gin.Context) {
	workerID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	assigned, err := h.db.GetAssignedModels(workerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get assignments"})
		return
	}

	modelIDs := make([]uuid.UUID, len(assigned))
	modelByID := make(map[uuid.UUID]int, len(assigned))
	for i, model := range assigned {
		modelIDs[i] = model.ID
		modelByID[model.ID] = i
	}

	result := make([]dto.ConversationSummary, 0)
	if len(modelIDs) == 0 {
		c.JSON(http.StatusOK, result)
		return
	}

	messages, err := h.db.GetMessagesInvolving(modelIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get conversations"})
		return
	}

	// Messages arrive oldest first, so overwriting per pair leaves the
	// latest message in the map.
	type pair struct{ fan, model uuid.UUID }
	latest := make(map[pair]dto.MessageResponse)
	order := make([]pair, 0)

	for i := range messages {
		msg := &messages[i]

		var p pair
		if _, ok := modelByID[msg.SenderID]; ok {
			p = pair{fan: msg.ReceiverID, model: msg.SenderID}
		} else {
			p = pair{fan: msg.SenderID, model: msg.ReceiverID}
		}

		if _, seen := latest[p]; !seen {
			order = append(order, p)
		}
		latest[p] = dto.NewMessageResponse(msg)
	}

	for _, p := range order {
		fan, err := h.db.GetUser(p.fan.String())
		if err != nil {
			continue
		}
		model := &assigned[modelByID[p.model]]

		result = append(result, dto.ConversationSummary{
			ID:          fmt.Sprintf("%s-%s", p.fan, p.model),
			Fan:         dto.NewUserResponse(fan),
			Model:       dto.NewUserResponse(model),
			LastMessage: latest[p],
		})
	}

	c.JSON(http.StatusOK, result)
}
