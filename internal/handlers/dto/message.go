package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomchat/internal/models"
)

// SendMessagePayload структура для входящих сообщений
type SendMessagePayload struct {
	Text string `json:"text"`
}

// MessageResponse структура для исходящих сообщений
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	RoomID         uuid.UUID `json:"room_id"`
	SenderUsername string    `json:"sender_username"`
	Text           string    `json:"text"`
	Seq            int64     `json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		RoomID:         m.RoomID,
		SenderUsername: m.SenderUsername,
		Text:           m.Text,
		Seq:            m.Seq,
		CreatedAt:      m.CreatedAt,
	}
}
