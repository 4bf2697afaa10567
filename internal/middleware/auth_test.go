package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T, auth func(*database.Database) gin.HandlerFunc) (*database.Database, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{}))

	db := database.NewDatabase(gdb)

	router := gin.New()
	router.GET("/whoami", auth(db), func(c *gin.Context) {
		identity := c.MustGet(IdentityKey).(Identity)
		c.JSON(http.StatusOK, gin.H{"username": identity.Username})
	})

	return db, router
}

func TestUsernameAuth_MissingHeader(t *testing.T) {
	req := require.New(t)
	_, router := setupRouter(t, UsernameAuth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	req.Equal(http.StatusBadRequest, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("X-Username", "   ")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestUsernameAuth_ProvisionsUser(t *testing.T) {
	req := require.New(t)
	db, router := setupRouter(t, UsernameAuth)

	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("X-Username", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"username":"alice"}`, w.Body.String())

	user, err := db.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal("alice", user.Username)

	// Повторный запрос не создаёт дубликата
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	req.Equal(http.StatusOK, w.Code)

	users, err := db.ListUsers()
	req.NoError(err)
	req.Len(users, 1)
}

func TestUsernameAuth_TrimsWhitespace(t *testing.T) {
	req := require.New(t)
	db, router := setupRouter(t, UsernameAuth)

	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("X-Username", "  alice  ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"username":"alice"}`, w.Body.String())

	_, err := db.GetUserByUsername("alice")
	req.NoError(err)
}

func TestWSUsernameAuth_QueryParam(t *testing.T) {
	req := require.New(t)
	db, router := setupRouter(t, WSUsernameAuth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami?username=bob", nil))
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"username":"bob"}`, w.Body.String())

	_, err := db.GetUserByUsername("bob")
	req.NoError(err)
}

func TestWSUsernameAuth_HeaderFallback(t *testing.T) {
	req := require.New(t)
	_, router := setupRouter(t, WSUsernameAuth)

	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("X-Username", "carol")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"username":"carol"}`, w.Body.String())

	// Query имеет приоритет над заголовком
	r = httptest.NewRequest(http.MethodGet, "/whoami?username=dave", nil)
	r.Header.Set("X-Username", "carol")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	req.JSONEq(`{"username":"dave"}`, w.Body.String())
}

func TestWSUsernameAuth_Missing(t *testing.T) {
	req := require.New(t)
	_, router := setupRouter(t, WSUsernameAuth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	req.Equal(http.StatusBadRequest, w.Code)
}
