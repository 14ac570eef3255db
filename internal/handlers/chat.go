package handlers

import (
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/fanconnect/server/internal/handlers/dto"
	"github.com/fanconnect/server/internal/models"
	ws "github.com/fanconnect/server/internal/websocket"
)

// Every fan-sent message costs this many gems.
const messageGemCost = 1

var errInsufficientGems = errors.New("insufficient gems")

// ChatStore is the slice of storage the live message path depends on.
// *database.Database satisfies it; tests use a fake.
type ChatStore interface {
	GetUser(id string) (*models.User, error)
	SaveMessage(message *models.Message) error
	CanAfford(userID uuid.UUID, cost int) (bool, error)
	RecordTransaction(userID uuid.UUID, amount int, txType models.TransactionType, description string) (*models.GemTransaction, error)
	GetAssignedWorkers(modelID uuid.UUID) ([]uuid.UUID, error)
}

// Pusher delivers a frame to a connected user, reporting whether anyone was
// reachable. *websocket.Registry satisfies it.
type Pusher interface {
	Push(userID uuid.UUID, env *ws.Envelope) bool
}

// ChatHandler routes inbound chat frames: validate, persist, debit gems,
// fan the message out to the receiver plus any workers assigned to that
// model, then acknowledge to the sender.
type ChatHandler struct {
	store    ChatStore
	registry Pusher
}

func NewChatHandler(store ChatStore, registry Pusher) *ChatHandler {
	return &ChatHandler{
		store:    store,
		registry: registry,
	}
}

func (h *ChatHandler) HandleFrame(client *ws.Client, frame *ws.Frame) error {
	switch frame.Type {
	case ws.FrameChatMessage:
		return h.handleChatMessage(client, frame)

	default:
		log.Printf("Unknown frame type: %s", frame.Type)
		return nil
	}
}

func (h *ChatHandler) handleChatMessage(client *ws.Client, frame *ws.Frame) error {
	if frame.Content == "" || frame.ReceiverID == "" {
		return ws.ErrInvalidFrame
	}

	receiverID, err := uuid.Parse(frame.ReceiverID)
	if err != nil {
		return ws.ErrInvalidFrame
	}

	sender, err := h.store.GetUser(client.UserID.String())
	if err != nil {
		log.Printf("Failed to resolve sender %s: %v", client.UserID, err)
		return errors.New("failed to resolve sender")
	}

	// Fans pay per message; models and workers send for free. The balance
	// check happens before anything is persisted so a broke fan's message
	// never exists.
	if sender.Role == models.RoleFan {
		ok, err := h.store.CanAfford(client.UserID, messageGemCost)
		if err != nil {
			log.Printf("Failed to check balance for %s: %v", client.UserID, err)
			return errors.New("failed to check gem balance")
		}
		if !ok {
			return errInsufficientGems
		}
	}

	message := &models.Message{
		SenderID:   client.UserID,
		ReceiverID: receiverID,
		Content:    frame.Content,
		GemCost:    messageGemCost,
	}

	// Persistence is the durability contract: if this fails the whole send
	// fails and the sender gets an error instead of an acknowledgment.
	if err := h.store.SaveMessage(message); err != nil {
		log.Printf("Failed to save message: %v", err)
		return errors.New("failed to save message")
	}

	if sender.Role == models.RoleFan {
		// Best-effort after the durable write: a failed debit (e.g. a
		// concurrent spend drained the balance after the check) is logged
		// but does not unwind the persisted message.
		if _, err := h.store.RecordTransaction(client.UserID, message.GemCost, models.TransactionSpend, "Message sent"); err != nil {
			log.Printf("Failed to debit gems for %s: %v", client.UserID, err)
		}
	}

	response := dto.NewMessageResponse(message)
	newMessage := &ws.Envelope{
		Type:    ws.FrameNewMessage,
		Message: response,
	}

	// The receiver always gets a push attempt; offline receivers are
	// silently skipped.
	h.registry.Push(receiverID, newMessage)

	// Fan-to-model messages additionally fan out to every worker assigned
	// to that model. Errors here degrade delivery, never abort the send.
	if sender.Role == models.RoleFan {
		receiver, err := h.store.GetUser(receiverID.String())
		if err != nil {
			log.Printf("Failed to resolve receiver %s: %v", receiverID, err)
		} else if receiver.Role == models.RoleModel {
			workers, err := h.store.GetAssignedWorkers(receiverID)
			if err != nil {
				log.Printf("Failed to load workers for model %s: %v", receiverID, err)
			} else {
				for _, workerID := range workers {
					h.registry.Push(workerID, newMessage)
				}
			}
		}
	}

	// Acknowledge to the sender's own channel, whether or not any recipient
	// was reachable.
	if err := client.SendEnvelope(&ws.Envelope{Type: ws.FrameMessageSent, Message: response}); err != nil {
		log.Printf("Failed to acknowledge message %s to sender %s: %v", message.ID, client.UserID, err)
	}

	return nil
}
