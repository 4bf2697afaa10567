package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/handlers/dto"
	"github.com/thereayou/roomchat/internal/models"
)

type HTTPMessageHandler struct {
	db *database.Database
}

func NewHTTPMessageHandler(db *database.Database) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db}
}

// GetRoomMessages получает историю сообщений комнаты от старых к новым.
// Только для участников.
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	identity := identityFrom(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if !room.HasParticipant(identity.Username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this room"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	messages, err := h.db.GetRoomMessages(roomID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	result := lo.Map(messages, func(msg models.Message, _ int) dto.MessageResponse {
		return dto.NewMessageResponse(&msg)
	})

	c.JSON(http.StatusOK, gin.H{"messages": result})
}

// DeleteMessage удаляет сообщение. Разрешено отправителю и владельцу
// комнаты; позиции оставшихся сообщений не меняются.
func (h *HTTPMessageHandler) DeleteMessage(c *gin.Context) {
	identity := identityFrom(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	messageID := c.Param("messageID")

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	message, err := h.db.GetMessage(roomID, messageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	isSender := message.SenderUsername == identity.Username
	isOwner := room.OwnerUsername == identity.Username

	if !isSender && !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "only message sender or room owner can delete"})
		return
	}

	if err := h.db.DeleteMessage(messageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message deleted successfully"})
}
