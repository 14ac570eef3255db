package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection is closed")
	ErrInvalidFrame    = errors.New("invalid message frame")
	ErrUnauthorized    = errors.New("unauthorized")
)
