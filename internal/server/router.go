package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/fanconnect/server/internal/handlers"
	"github.com/fanconnect/server/internal/middleware"
	"github.com/fanconnect/server/internal/models"
	"github.com/fanconnect/server/pkg/auth"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Message *handlers.HTTPMessageHandler
	Gems    *handlers.GemHandler
	Worker  *handlers.WorkerHandler
	Admin   *handlers.AdminHandler
	WS      *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, jwtMgr *auth.JWTManager, rdb *redis.Client, h *Handlers) {
	// Auth endpoints
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(jwtMgr, rdb), h.Auth.Logout)
	}

	// API endpoints
	api := r.Group("/api", middleware.AuthMiddleware(jwtMgr, rdb))
	{
		api.GET("/users/me", h.User.GetMe)

		api.GET("/messages/:userId", h.Message.GetConversation)
		api.POST("/messages", h.Message.SendMessage)

		api.POST("/gems/purchase", h.Gems.Purchase)
		api.GET("/gems/history", h.Gems.History)

		worker := api.Group("/worker", middleware.RequireRole(models.RoleWorker))
		{
			worker.GET("/assignments", h.Worker.GetAssignments)
			worker.GET("/conversations", h.Worker.GetConversations)
		}

		admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/assign-worker", h.Admin.AssignWorker)
			admin.DELETE("/assign-worker", h.Admin.UnassignWorker)
			admin.GET("/users", h.Admin.GetUsers)
		}
	}

	// Live chat channel
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), h.WS.HandleWebSocket)
}
