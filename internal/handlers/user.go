package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/models"
	"github.com/thereayou/roomchat/internal/presence"
)

type UserHandler struct {
	db      *database.Database
	tracker *presence.Tracker
}

func NewUserHandler(db *database.Database, tracker *presence.Tracker) *UserHandler {
	return &UserHandler{db: db, tracker: tracker}
}

// GetMe возвращает информацию о текущем пользователе.
// Пользователь уже создан middleware, если его не было.
func (h *UserHandler) GetMe(c *gin.Context) {
	identity := identityFrom(c)

	user, err := h.db.GetUserByUsername(identity.Username)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"created_at":   user.CreatedAt,
		"last_seen_at": user.LastSeenAt,
		"is_online":    h.tracker.IsOnline(c.Request.Context(), user.Username),
	})
}

// GetUsers возвращает всех пользователей системы
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.db.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	online := h.tracker.OnlineUsernames(c.Request.Context())

	result := lo.Map(users, func(user models.User, _ int) gin.H {
		return gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"created_at":   user.CreatedAt,
			"last_seen_at": user.LastSeenAt,
			"is_online":    lo.Contains(online, user.Username),
		}
	})

	c.JSON(http.StatusOK, gin.H{"users": result})
}
