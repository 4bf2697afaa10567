package database

import (
	"errors"
	"strings"
	"time"

	"github.com/thereayou/roomchat/internal/models"
	"gorm.io/gorm"
)

// GetOrCreateUser создаёт пользователя при первом появлении имени.
// Имена чувствительны к регистру и неизменяемы.
func (d *Database) GetOrCreateUser(username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username cannot be empty")
	}

	user := models.User{Username: username}
	err := d.db.Where("username = ?", username).
		Attrs(models.User{LastSeenAt: time.Now()}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (d *Database) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := d.db.Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (d *Database) UpdateLastSeen(username string) error {
	return d.db.Model(&models.User{}).Where("username = ?", username).Update("last_seen_at", time.Now()).Error
}
