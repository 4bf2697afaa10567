package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType определяет типы событий реального времени
type EventType string

const (
	// Системные типы
	TypePing EventType = "ping"
	TypePong EventType = "pong"

	// Клиент -> сервер
	TypeJoinRoom    EventType = "join_room"
	TypeLeaveRoom   EventType = "leave_room"
	TypeSendMessage EventType = "send_message"

	// Сервер -> клиент
	TypeJoinedRoom      EventType = "joined_room"
	TypeLeftRoom        EventType = "left_room"
	TypeNewMessage      EventType = "new_message"
	TypeRemovedFromRoom EventType = "removed_from_room"
	TypeRoomDeleted     EventType = "room_deleted"
	TypeError           EventType = "error"
)

type Event struct {
	Type      EventType       `json:"type"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
