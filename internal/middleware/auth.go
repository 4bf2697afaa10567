package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/roomchat/internal/database"
)

const IdentityKey = "identity"

// Identity — неизменяемое подтверждение "это соединение действует
// от имени Username". Создаётся один раз при входе запроса;
// повторной аутентификации в рамках соединения нет.
type Identity struct {
	Username string
}

// UsernameAuth извлекает имя пользователя из заголовка X-Username
// и создает пользователя при первом появлении
func UsernameAuth(db *database.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.GetHeader("X-Username"))
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Username header is required"})
			c.Abort()
			return
		}

		if _, err := db.GetOrCreateUser(username); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
			c.Abort()
			return
		}

		c.Set(IdentityKey, Identity{Username: username})
		c.Next()
	}
}

// WSUsernameAuth специальный middleware для WebSocket: имя приходит
// в query-параметре, заголовок остаётся запасным вариантом
func WSUsernameAuth(db *database.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.Query("username"))
		if username == "" {
			username = strings.TrimSpace(c.GetHeader("X-Username"))
		}

		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
			c.Abort()
			return
		}

		if _, err := db.GetOrCreateUser(username); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
			c.Abort()
			return
		}

		c.Set(IdentityKey, Identity{Username: username})
		c.Next()
	}
}
