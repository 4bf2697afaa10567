package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomchat/internal/models"
	"gorm.io/gorm"
)

// CreateMessage сохраняет сообщение и присваивает ему позицию в комнате.
// Вызывается только под блокировкой комнаты, поэтому два конкурентных
// сохранения в одну комнату не могут получить одинаковый Seq.
func (d *Database) CreateMessage(roomID uuid.UUID, senderUsername, text string) (*models.Message, error) {
	message := &models.Message{
		RoomID:         roomID,
		SenderUsername: senderUsername,
		Text:           text,
		CreatedAt:      time.Now(),
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&models.Message{}).
			Where("room_id = ?", roomID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		message.Seq = maxSeq + 1
		return tx.Create(message).Error
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}

func (d *Database) GetMessage(roomID uuid.UUID, id string) (*models.Message, error) {
	var message models.Message
	if err := d.db.First(&message, "id = ? AND room_id = ?", id, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// GetRoomMessages возвращает сообщения комнаты от старых к новым.
// Позиции удалённых сообщений не переиспользуются.
func (d *Database) GetRoomMessages(roomID uuid.UUID, limit int) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.
		Where("room_id = ?", roomID).
		Order("seq ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (d *Database) DeleteMessage(id string) error {
	return d.db.Delete(&models.Message{}, "id = ?", id).Error
}
