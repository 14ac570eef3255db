package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/database"
	"github.com/fanconnect/server/internal/handlers/dto"
	"github.com/fanconnect/server/internal/models"
)

type AdminHandler struct {
	db *database.Database
}

func NewAdminHandler(db *database.Database) *AdminHandler {
	return &AdminHandler{db: db}
}

type assignmentRequest struct {
	WorkerID string `json:"workerId" binding:"required,uuid"`
	ModelID  string `json:"modelId" binding:"required,uuid"`
}

// AssignWorker закрепляет воркера за моделью. Повторное закрепление той же
// пары — no-op.
func (h *AdminHandler) AssignWorker(c *gin.Context) {
	workerID, modelID, ok := h.bindAssignment(c)
	if !ok {
		return
	}

	assignment, err := h.db.AssignWorker(workerID, modelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign worker"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       assignment.ID,
		"workerId": assignment.WorkerID,
		"modelId":  assignment.ModelID,
		"isActive": assignment.IsActive,
	})
}

// UnassignWorker снимает закрепление; отсутствующая пара — no-op.
func (h *AdminHandler) UnassignWorker(c *gin.Context) {
	workerID, modelID, ok := h.bindAssignment(c)
	if !ok {
		return
	}

	if err := h.db.UnassignWorker(workerID, modelID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unassign worker"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetUsers возвращает пользователей, опционально отфильтрованных по роли
func (h *AdminHandler) GetUsers(c *gin.Context) {
	var users []models.User

	if roleParam := c.Query("role"); roleParam != "" {
		role := models.Role(roleParam)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}

		var err error
		users, err = h.db.GetUsersByRole(role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get users"})
			return
		}
	} else {
		for _, role := range []models.Role{models.RoleFan, models.RoleModel, models.RoleWorker} {
			byRole, err := h.db.GetUsersByRole(role)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get users"})
				return
			}
			users = append(users, byRole...)
		}
	}

	result := make([]dto.UserResponse, len(users))
	for i, user := range users {
		result[i] = dto.NewUserResponse(&user)
	}

	c.JSON(http.StatusOK, result)
}

// bindAssignment парсит пару worker/model и проверяет роли обеих сторон.
func (h *AdminHandler) bindAssignment(c *gin.Context) (workerID, modelID uuid.UUID, ok bool) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return uuid.Nil, uuid.Nil, false
	}

	workerID = uuid.MustParse(req.WorkerID)
	modelID = uuid.MustParse(req.ModelID)

	worker, err := h.db.GetUser(workerID.String())
	if err != nil || worker.Role != models.RoleWorker {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workerId is not a worker"})
		return uuid.Nil, uuid.Nil, false
	}

	model, err := h.db.GetUser(modelID.String())
	if err != nil || model.Role != models.RoleModel {
		c.JSON(http.StatusBadRequest, gin.H{"error": "modelId is not a model"})
		return uuid.Nil, uuid.Nil, false
	}

	return workerID, modelID, true
}
