package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type Room struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"not null"`
	OwnerUsername string    `gorm:"not null"`
	CreatedAt     time.Time

	// Связи
	Participants []User    `gorm:"many2many:room_participants"`
	Messages     []Message `gorm:"foreignKey:RoomID"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasParticipant проверяет, состоит ли username в комнате.
// Работает только если Participants загружены.
func (r *Room) HasParticipant(username string) bool {
	return lo.ContainsBy(r.Participants, func(u User) bool {
		return u.Username == username
	})
}

// ParticipantUsernames возвращает имена всех участников комнаты
func (r *Room) ParticipantUsernames() []string {
	return lo.Map(r.Participants, func(u User, _ int) string {
		return u.Username
	})
}
