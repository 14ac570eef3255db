package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide map from user id to live connection. It is
// the single source of truth for "is this user reachable for push delivery".
// Each user holds at most one entry; a second connection for the same user
// supersedes the first.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uuid.UUID]*Client),
	}
}

// Register inserts the client, replacing any existing entry for the same
// user. The superseded client's send channel is closed so its write pump
// unwinds and the old connection dies instead of receiving stray frames.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.clients[client.UserID]; ok && old != client {
		old.closeSend()
		log.Printf("Client superseded: %s (user %s)", old.ID, old.UserID)
	}
	r.clients[client.UserID] = client

	log.Printf("Client registered: %s (user %s)", client.ID, client.UserID)
}

// Unregister removes the client's entry. It compares the client itself, not
// just the user id, so a superseded connection cleaning up after itself
// cannot evict its replacement. Unregistering an absent client is a no-op.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[client.UserID]; ok && current == client {
		delete(r.clients, client.UserID)
		client.closeSend()
		log.Printf("Client unregistered: %s (user %s)", client.ID, client.UserID)
	}
}

// Lookup returns the current client for the user, if any.
func (r *Registry) Lookup(userID uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[userID]
	return client, ok
}

// Push marshals the envelope and attempts a non-blocking delivery to the
// user's connection. It reports false when the user is offline or the
// connection's send buffer is full; neither is an error, an unreachable
// recipient is simply skipped.
func (r *Registry) Push(userID uuid.UUID, env *Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to marshal frame for user %s: %v", userID, err)
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[userID]
	if !ok {
		return false
	}

	if err := client.enqueue(data); err != nil {
		log.Printf("Client %s unreachable, dropping frame: %v", client.ID, err)
		return false
	}
	return true
}

// Stop disconnects every client. Closing the send channels lets each write
// pump flush its close frame and tear the connection down itself.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, client := range r.clients {
		delete(r.clients, userID)
		client.closeSend()
	}
}
