package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomchat/internal/models"
)

type CreateRoomRequest struct {
	Name                 string   `json:"name" binding:"required"`
	ParticipantUsernames []string `json:"participant_usernames"`
}

type UpdateRoomRequest struct {
	Name                 string   `json:"name"`
	ParticipantUsernames []string `json:"participant_usernames"`
}

type RoomResponse struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	OwnerUsername        string    `json:"owner_username"`
	ParticipantUsernames []string  `json:"participant_usernames"`
	CreatedAt            time.Time `json:"created_at"`
}

func NewRoomResponse(r *models.Room) RoomResponse {
	return RoomResponse{
		ID:                   r.ID,
		Name:                 r.Name,
		OwnerUsername:        r.OwnerUsername,
		ParticipantUsernames: r.ParticipantUsernames(),
		CreatedAt:            r.CreatedAt,
	}
}
