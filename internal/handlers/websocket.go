package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fanconnect/server/internal/middleware"
	ws "github.com/fanconnect/server/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	registry    *ws.Registry
	chatHandler *ChatHandler
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(registry *ws.Registry, chatHandler *ChatHandler) *WebSocketHandler {
	return &WebSocketHandler{
		registry:    registry,
		chatHandler: chatHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения. Аутентификация уже
// прошла в WSAuthMiddleware: без валидного токена соединение не достигает
// upgrade и никогда не попадает в Registry.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.registry, conn, userID.(uuid.UUID))

	h.registry.Register(client)

	go client.WritePump()
	go client.ReadPump(h.chatHandler)
}
