package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection is closed")
	ErrInvalidEvent    = errors.New("invalid event format")
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrRoomRequired    = errors.New("room_id is required")
	ErrEmptyMessage    = errors.New("text cannot be empty")
	ErrNotParticipant  = errors.New("not a participant of this room")
)
