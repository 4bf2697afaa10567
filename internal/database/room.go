package database

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/thereayou/roomchat/internal/models"
	"gorm.io/gorm"
)

// CreateRoom создает комнату. Владелец всегда попадает в участники,
// даже если его не было в списке; дубликаты схлопываются,
// все участники создаются при необходимости.
func (d *Database) CreateRoom(name, ownerUsername string, participantUsernames []string) (*models.Room, error) {
	usernames := append([]string{ownerUsername}, participantUsernames...)
	usernames = lo.Uniq(lo.FilterMap(usernames, func(u string, _ int) (string, bool) {
		u = strings.TrimSpace(u)
		return u, u != ""
	}))

	room := &models.Room{
		Name:          name,
		OwnerUsername: ownerUsername,
		CreatedAt:     time.Now(),
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		participants := make([]models.User, 0, len(usernames))
		for _, username := range usernames {
			user := models.User{Username: username}
			if err := tx.Where("username = ?", username).
				Attrs(models.User{LastSeenAt: time.Now()}).
				FirstOrCreate(&user).Error; err != nil {
				return err
			}
			participants = append(participants, user)
		}

		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return tx.Model(room).Association("Participants").Append(&participants)
	})
	if err != nil {
		return nil, err
	}

	return d.GetRoom(room.ID.String())
}

func (d *Database) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := d.db.Preload("Participants").First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetRoomsForUser возвращает комнаты, где username состоит участником
func (d *Database) GetRoomsForUser(username string) ([]models.Room, error) {
	user, err := d.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}

	var rooms []models.Room
	if err := d.db.Model(user).Association("Rooms").Find(&rooms); err != nil {
		return nil, err
	}

	// Для каждой комнаты загружаем участников
	for i := range rooms {
		if err := d.db.Model(&rooms[i]).Association("Participants").Find(&rooms[i].Participants); err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

func (d *Database) RenameRoom(roomID uuid.UUID, name string) error {
	res := d.db.Model(&models.Room{}).Where("id = ?", roomID).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// AddParticipant добавляет существующего пользователя в комнату. Идемпотентна.
func (d *Database) AddParticipant(roomID uuid.UUID, username string) error {
	room, err := d.GetRoom(roomID.String())
	if err != nil {
		return err
	}

	user, err := d.GetUserByUsername(username)
	if err != nil {
		return err
	}

	if room.HasParticipant(username) {
		return nil
	}
	return d.db.Model(room).Association("Participants").Append(user)
}

// RemoveParticipant удаляет участника. Владельца удалить нельзя.
func (d *Database) RemoveParticipant(roomID uuid.UUID, username string) error {
	room, err := d.GetRoom(roomID.String())
	if err != nil {
		return err
	}

	if username == room.OwnerUsername {
		return ErrOwnerRemoval
	}

	user, err := d.GetUserByUsername(username)
	if err != nil {
		return err
	}

	return d.db.Model(room).Association("Participants").Delete(user)
}

// SetParticipants заменяет состав комнаты. Владелец остаётся в любом случае.
func (d *Database) SetParticipants(roomID uuid.UUID, usernames []string) error {
	room, err := d.GetRoom(roomID.String())
	if err != nil {
		return err
	}

	usernames = lo.Uniq(lo.FilterMap(usernames, func(u string, _ int) (string, bool) {
		u = strings.TrimSpace(u)
		return u, u != ""
	}))
	if !lo.Contains(usernames, room.OwnerUsername) {
		usernames = append(usernames, room.OwnerUsername)
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		participants := make([]models.User, 0, len(usernames))
		for _, username := range usernames {
			user := models.User{Username: username}
			if err := tx.Where("username = ?", username).
				Attrs(models.User{LastSeenAt: time.Now()}).
				FirstOrCreate(&user).Error; err != nil {
				return err
			}
			participants = append(participants, user)
		}
		return tx.Model(room).Association("Participants").Replace(&participants)
	})
}

// DeleteRoom удаляет комнату вместе со всеми её сообщениями
func (d *Database) DeleteRoom(id string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if err := tx.Delete(&models.Message{}, "room_id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Model(&room).Association("Participants").Clear(); err != nil {
			return err
		}

		return tx.Delete(&room).Error
	})
}
