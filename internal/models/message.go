package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message хранит отправителя по имени, а не по FK на users:
// автоответчик пишет от синтетического имени, у которого нет своей записи.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID         uuid.UUID `gorm:"not null;index:idx_messages_room_seq,priority:1"`
	SenderUsername string    `gorm:"not null"`
	Text           string    `gorm:"not null"`
	Seq            int64     `gorm:"not null;index:idx_messages_room_seq,priority:2"`
	CreatedAt      time.Time

	// Связи
	Room Room `gorm:"foreignKey:RoomID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
