package database

import (
	"errors"
	"os"

	"github.com/thereayou/roomchat/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database — слой хранения: пользователи, комнаты, состав участников
// и журнал сообщений с позициями
type Database struct {
	db *gorm.DB
}

// NewDatabase оборачивает готовое соединение. Используется в тестах,
// где вместо Postgres подставляется sqlite в памяти.
func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Connect открывает соединение по DATABASE_URL и прогоняет миграции
func (d *Database) Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{}); err != nil {
		return err
	}

	d.db = db

	return nil
}
