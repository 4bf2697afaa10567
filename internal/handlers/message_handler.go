package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomchat/internal/ai"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/handlers/dto"
	"github.com/thereayou/roomchat/internal/models"
	"github.com/thereayou/roomchat/internal/roomlock"
	"github.com/thereayou/roomchat/internal/websocket"
)

// ChatHandler обрабатывает события реального времени: вход и выход
// из комнат, отправку сообщений и запуск автоответчика.
// Ошибки уходят событием error только виновному соединению.
type ChatHandler struct {
	db      *database.Database
	hub     *websocket.Hub
	locks   *roomlock.Registry
	gateway *ai.Gateway
}

// NewChatHandler собирает обработчик. generator может быть nil —
// тогда маркер в тексте игнорируется.
func NewChatHandler(db *database.Database, hub *websocket.Hub, locks *roomlock.Registry, generator ai.Generator, aiTimeout time.Duration) *ChatHandler {
	h := &ChatHandler{
		db:    db,
		hub:   hub,
		locks: locks,
	}
	if generator != nil {
		h.gateway = ai.NewGateway(generator, h, aiTimeout)
	}
	return h
}

func (h *ChatHandler) HandleEvent(client *websocket.Client, ev *websocket.Event) error {
	switch ev.Type {
	case websocket.TypeJoinRoom:
		return h.handleJoinRoom(client, ev)

	case websocket.TypeLeaveRoom:
		return h.handleLeaveRoom(client, ev)

	case websocket.TypeSendMessage:
		return h.handleSendMessage(client, ev)

	default:
		log.Printf("Unknown event type from client %s: %s", client.ID, ev.Type)
		return websocket.ErrUnknownEvent
	}
}

// handleJoinRoom под блокировкой комнаты проверяет участие
// и подписывает соединение.
func (h *ChatHandler) handleJoinRoom(client *websocket.Client, ev *websocket.Event) error {
	if ev.RoomID == nil {
		return websocket.ErrRoomRequired
	}
	roomID := *ev.RoomID

	mu := h.locks.Get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		return err
	}

	if !room.HasParticipant(client.Username) {
		return websocket.ErrNotParticipant
	}

	// Повторный вход в уже подписанную комнату — no-op
	h.hub.JoinRoom(client, roomID)

	// История не досылается: подписка действует только на новые сообщения
	client.SendEvent(websocket.TypeJoinedRoom, &roomID, nil)
	return nil
}

func (h *ChatHandler) handleLeaveRoom(client *websocket.Client, ev *websocket.Event) error {
	if ev.RoomID == nil {
		return websocket.ErrRoomRequired
	}
	roomID := *ev.RoomID

	h.hub.LeaveRoom(client, roomID)
	client.SendEvent(websocket.TypeLeftRoom, &roomID, nil)
	return nil
}

func (h *ChatHandler) handleSendMessage(client *websocket.Client, ev *websocket.Event) error {
	if ev.RoomID == nil {
		return websocket.ErrRoomRequired
	}

	var payload dto.SendMessagePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return websocket.ErrInvalidEvent
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return websocket.ErrEmptyMessage
	}

	room, _, err := h.post(*ev.RoomID, client.Username, text)
	if err != nil {
		return err
	}

	// Триггерное сообщение уже сохранено и разослано с маркером в тексте
	if h.gateway != nil && ai.ContainsTrigger(text) {
		h.gateway.Trigger(client, room.ID, room.Name, text)
	}

	go func() {
		if err := h.db.UpdateLastSeen(client.Username); err != nil {
			log.Printf("Failed to update last seen for %q: %v", client.Username, err)
		}
	}()

	return nil
}

// PostMessage — точка входа автоответчика: ответ проходит тот же путь
// сохранения и рассылки, что и пользовательские сообщения,
// и получает следующую позицию в комнате.
func (h *ChatHandler) PostMessage(roomID uuid.UUID, senderUsername, text string) (*models.Message, error) {
	_, msg, err := h.post(roomID, senderUsername, text)
	return msg, err
}

// post под блокировкой комнаты проверяет участие, сохраняет
// и рассылает сообщение.
func (h *ChatHandler) post(roomID uuid.UUID, senderUsername, text string) (*models.Room, *models.Message, error) {
	mu := h.locks.Get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		return nil, nil, err
	}

	// Синтетический отправитель не участник и проверке не подлежит
	if senderUsername != ai.SenderName && !room.HasParticipant(senderUsername) {
		return nil, nil, websocket.ErrNotParticipant
	}

	msg, err := h.db.CreateMessage(room.ID, senderUsername, text)
	if err != nil {
		log.Printf("Failed to save message in room %s: %v", roomID, err)
		return nil, nil, err
	}

	response, err := json.Marshal(dto.NewMessageResponse(msg))
	if err != nil {
		return nil, nil, err
	}

	evData, err := json.Marshal(websocket.Event{
		Type:      websocket.TypeNewMessage,
		RoomID:    &room.ID,
		Data:      response,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, nil, err
	}

	h.hub.BroadcastToRoom(room.ID, evData)

	return room, msg, nil
}
