package websocket

type FrameType string

const (
	// client -> server
	FrameChatMessage FrameType = "chat_message"

	// server -> client
	FrameNewMessage  FrameType = "new_message"
	FrameMessageSent FrameType = "message_sent"
	FrameError       FrameType = "error"
)

// Frame is one inbound JSON object on the live channel.
type Frame struct {
	Type       FrameType `json:"type"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
}

// Envelope is one outbound JSON object pushed to a client.
type Envelope struct {
	Type    FrameType   `json:"type"`
	Message interface{} `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}
