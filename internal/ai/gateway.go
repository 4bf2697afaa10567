package ai

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomchat/internal/models"
)

// Poster кладёт ответ генератора в тот же путь
// "сохранить, затем разослать", что и обычные сообщения
type Poster interface {
	PostMessage(roomID uuid.UUID, senderUsername, text string) (*models.Message, error)
}

// Notifier доставляет ошибку тому соединению, которое вызвало генерацию
type Notifier interface {
	SendError(message string)
}

// Gateway запускает обращение к генератору в отдельной горутине.
// Каждый триггер независим.
type Gateway struct {
	generator Generator
	poster    Poster
	timeout   time.Duration
}

func NewGateway(generator Generator, poster Poster, timeout time.Duration) *Gateway {
	return &Gateway{
		generator: generator,
		poster:    poster,
		timeout:   timeout,
	}
}

// Trigger планирует генерацию ответа и сразу возвращает управление.
// При ошибке или таймауте событие error получает только notifier.
// Разрыв инициировавшего соединения генерацию не отменяет.
func (g *Gateway) Trigger(notifier Notifier, roomID uuid.UUID, roomName, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		answer, err := g.generator.Generate(ctx, Prompt(roomName, text))
		if err != nil {
			log.Printf("Generator failed for room %s: %v", roomID, err)
			if notifier != nil {
				notifier.SendError("assistant is unavailable right now")
			}
			return
		}

		if _, err := g.poster.PostMessage(roomID, SenderName, answer); err != nil {
			log.Printf("Failed to post generated reply to room %s: %v", roomID, err)
			if notifier != nil {
				notifier.SendError("assistant reply could not be delivered")
			}
		}
	}()
}
