package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 512 * 1024 // 512KB
)

// FrameHandler обрабатывает входящие фреймы клиента
type FrameHandler interface {
	HandleFrame(client *Client, frame *Frame) error
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Conn     *websocket.Conn
	registry *Registry

	// mu guards send against a concurrent closeSend: the registry may shut
	// this client down from another goroutine (reconnect, shutdown) while
	// the read pump is still mid-frame.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(registry *Registry, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Conn:     conn,
		registry: registry,
		send:     make(chan []byte, 256),
	}
}

// ReadPump читает сообщения от клиента
func (c *Client) ReadPump(handler FrameHandler) {
	defer func() {
		c.registry.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame Frame
		err := c.Conn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if handler != nil {
			if err := handler.HandleFrame(c, &frame); err != nil {
				log.Printf("Error handling frame from %s: %v", c.UserID, err)
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Registry закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEnvelope queues an outbound frame on this connection.
func (c *Client) SendEnvelope(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// enqueue puts raw bytes on the send channel without blocking. A client
// that has been shut down reports ErrClientClosed instead of panicking on
// the closed channel.
func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// closeSend shuts the outbound side down. Idempotent; safe to call while
// another goroutine is inside enqueue.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) SendError(errorMsg string) {
	c.SendEnvelope(&Envelope{
		Type:  FrameError,
		Error: errorMsg,
	})
}
