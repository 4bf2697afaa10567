package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/handlers/dto"
	"github.com/thereayou/roomchat/internal/middleware"
	"github.com/thereayou/roomchat/internal/roomlock"
	ws "github.com/thereayou/roomchat/internal/websocket"
)

type apiEnv struct {
	db     *database.Database
	hub    *ws.Hub
	router *gin.Engine
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := openTestDB(t)
	hub := ws.NewHub(nil)
	go hub.Run()
	locks := roomlock.NewRegistry()

	rooms := NewRoomHandler(db, hub, locks)
	messages := NewHTTPMessageHandler(db)

	router := gin.New()
	api := router.Group("/api", middleware.UsernameAuth(db))
	api.POST("/rooms", rooms.CreateRoom)
	api.GET("/rooms/my", rooms.GetMyRooms)
	api.GET("/rooms/:id", rooms.GetRoom)
	api.PATCH("/rooms/:id", rooms.UpdateRoom)
	api.DELETE("/rooms/:id", rooms.DeleteRoom)
	api.POST("/rooms/:id/participants/:username", rooms.AddParticipant)
	api.DELETE("/rooms/:id/participants/:username", rooms.RemoveParticipant)
	api.GET("/rooms/:id/messages", messages.GetRoomMessages)
	api.DELETE("/rooms/:id/messages/:messageID", messages.DeleteMessage)

	return &apiEnv{db: db, hub: hub, router: router}
}

func (e *apiEnv) do(t *testing.T, username, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if username != "" {
		req.Header.Set("X-Username", username)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// connect регистрирует живое соединение и дожидается, пока hub его учтёт
func (e *apiEnv) connect(t *testing.T, username string) *ws.Client {
	t.Helper()

	client := ws.NewClient(e.hub, nil, username)
	e.hub.Register(client)
	require.Eventually(t, func() bool {
		return lo.Contains(e.hub.OnlineUsernames(), username)
	}, time.Second, 5*time.Millisecond)
	return client
}

func decodeRoom(t *testing.T, w *httptest.ResponseRecorder) dto.RoomResponse {
	t.Helper()

	var room dto.RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	return room
}

func TestCreateRoom_OwnerAlwaysIncluded(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	w := env.do(t, "alice", http.MethodPost, "/api/rooms", dto.CreateRoomRequest{
		Name:                 "general",
		ParticipantUsernames: []string{"bob"},
	})
	req.Equal(http.StatusCreated, w.Code)

	room := decodeRoom(t, w)
	req.Equal("general", room.Name)
	req.Equal("alice", room.OwnerUsername)
	req.ElementsMatch([]string{"alice", "bob"}, room.ParticipantUsernames)
}

func TestCreateRoom_MissingName(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	w := env.do(t, "alice", http.MethodPost, "/api/rooms", gin.H{})
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestCreateRoom_NoUsernameHeader(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	w := env.do(t, "", http.MethodPost, "/api/rooms", dto.CreateRoomRequest{Name: "general"})
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestGetMyRooms(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	_, err := env.db.CreateRoom("general", "alice", []string{"bob"})
	req.NoError(err)
	_, err = env.db.CreateRoom("private", "alice", nil)
	req.NoError(err)

	w := env.do(t, "bob", http.MethodGet, "/api/rooms/my", nil)
	req.Equal(http.StatusOK, w.Code)

	var resp struct {
		Rooms []dto.RoomResponse `json:"rooms"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Len(resp.Rooms, 1)
	req.Equal("general", resp.Rooms[0].Name)
}

func TestGetRoom_NonParticipantForbidden(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", nil)
	req.NoError(err)

	w := env.do(t, "carol", http.MethodGet, "/api/rooms/"+room.ID.String(), nil)
	req.Equal(http.StatusForbidden, w.Code)
}

func TestGetRoom_UnknownID(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	w := env.do(t, "alice", http.MethodGet, "/api/rooms/"+uuid.NewString(), nil)
	req.Equal(http.StatusNotFound, w.Code)

	w = env.do(t, "alice", http.MethodGet, "/api/rooms/not-a-uuid", nil)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestUpdateRoom_OnlyOwner(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", []string{"bob"})
	req.NoError(err)

	w := env.do(t, "bob", http.MethodPatch, "/api/rooms/"+room.ID.String(),
		dto.UpdateRoomRequest{Name: "hijacked"})
	req.Equal(http.StatusForbidden, w.Code)

	w = env.do(t, "alice", http.MethodPatch, "/api/rooms/"+room.ID.String(),
		dto.UpdateRoomRequest{Name: "renamed"})
	req.Equal(http.StatusOK, w.Code)
	req.Equal("renamed", decodeRoom(t, w).Name)
}

func TestUpdateRoom_ReplaceParticipantsEvictsRemoved(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", []string{"bob", "carol"})
	req.NoError(err)

	bob := env.connect(t, "bob")
	env.hub.JoinRoom(bob, room.ID)

	w := env.do(t, "alice", http.MethodPatch, "/api/rooms/"+room.ID.String(),
		dto.UpdateRoomRequest{ParticipantUsernames: []string{"carol"}})
	req.Equal(http.StatusOK, w.Code)

	updated := decodeRoom(t, w)
	// Владелец остаётся в составе даже при полной замене списка
	req.ElementsMatch([]string{"alice", "carol"}, updated.ParticipantUsernames)

	ev := readEvent(t, bob)
	req.Equal(ws.TypeRemovedFromRoom, ev.Type)
	req.False(bob.IsInRoom(room.ID))
}

func TestDeleteRoom_PurgesEverything(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", []string{"bob"})
	req.NoError(err)
	_, err = env.db.CreateMessage(room.ID, "alice", "hello")
	req.NoError(err)

	bob := env.connect(t, "bob")
	env.hub.JoinRoom(bob, room.ID)

	w := env.do(t, "bob", http.MethodDelete, "/api/rooms/"+room.ID.String(), nil)
	req.Equal(http.StatusForbidden, w.Code)

	w = env.do(t, "alice", http.MethodDelete, "/api/rooms/"+room.ID.String(), nil)
	req.Equal(http.StatusOK, w.Code)

	ev := readEvent(t, bob)
	req.Equal(ws.TypeRoomDeleted, ev.Type)
	req.False(bob.IsInRoom(room.ID))

	_, err = env.db.GetRoom(room.ID.String())
	req.ErrorIs(err, database.ErrRoomNotFound)

	w = env.do(t, "alice", http.MethodDelete, "/api/rooms/"+room.ID.String(), nil)
	req.Equal(http.StatusNotFound, w.Code)
}

func TestAddParticipant(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", nil)
	req.NoError(err)
	_, err = env.db.GetOrCreateUser("bob")
	req.NoError(err)

	path := fmt.Sprintf("/api/rooms/%s/participants/bob", room.ID)

	w := env.do(t, "bob", http.MethodPost, path, nil)
	req.Equal(http.StatusForbidden, w.Code)

	w = env.do(t, "alice", http.MethodPost, path, nil)
	req.Equal(http.StatusOK, w.Code)
	req.ElementsMatch([]string{"alice", "bob"}, decodeRoom(t, w).ParticipantUsernames)

	// Несуществующий пользователь не добавляется
	w = env.do(t, "alice", http.MethodPost,
		fmt.Sprintf("/api/rooms/%s/participants/ghost", room.ID), nil)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestRemoveParticipant(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", []string{"bob"})
	req.NoError(err)

	bob := env.connect(t, "bob")
	env.hub.JoinRoom(bob, room.ID)

	w := env.do(t, "alice", http.MethodDelete,
		fmt.Sprintf("/api/rooms/%s/participants/alice", room.ID), nil)
	req.Equal(http.StatusForbidden, w.Code)

	w = env.do(t, "alice", http.MethodDelete,
		fmt.Sprintf("/api/rooms/%s/participants/bob", room.ID), nil)
	req.Equal(http.StatusOK, w.Code)

	ev := readEvent(t, bob)
	req.Equal(ws.TypeRemovedFromRoom, ev.Type)
	req.False(bob.IsInRoom(room.ID))
}

func TestGetRoomMessages(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", nil)
	req.NoError(err)

	for _, text := range []string{"one", "two", "three"} {
		_, err = env.db.CreateMessage(room.ID, "alice", text)
		req.NoError(err)
	}

	w := env.do(t, "alice", http.MethodGet, "/api/rooms/"+room.ID.String()+"/messages", nil)
	req.Equal(http.StatusOK, w.Code)

	var resp struct {
		Messages []dto.MessageResponse `json:"messages"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Len(resp.Messages, 3)
	req.Equal("one", resp.Messages[0].Text)
	req.Equal(int64(3), resp.Messages[2].Seq)

	w = env.do(t, "carol", http.MethodGet, "/api/rooms/"+room.ID.String()+"/messages", nil)
	req.Equal(http.StatusForbidden, w.Code)

	w = env.do(t, "alice", http.MethodGet, "/api/rooms/"+room.ID.String()+"/messages?limit=2", nil)
	req.Equal(http.StatusOK, w.Code)
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	req.Len(resp.Messages, 2)
}

func TestDeleteMessage_SenderOrOwner(t *testing.T) {
	req := require.New(t)
	env := setupAPI(t)

	room, err := env.db.CreateRoom("general", "alice", []string{"bob", "carol"})
	req.NoError(err)

	msg, err := env.db.CreateMessage(room.ID, "bob", "delete me")
	req.NoError(err)

	path := fmt.Sprintf("/api/rooms/%s/messages/%s", room.ID, msg.ID)

	// Посторонний участник удалить не может
	w := env.do(t, "carol", http.MethodDelete, path, nil)
	req.Equal(http.StatusForbidden, w.Code)

	// Отправитель может
	w = env.do(t, "bob", http.MethodDelete, path, nil)
	req.Equal(http.StatusOK, w.Code)

	w = env.do(t, "bob", http.MethodDelete, path, nil)
	req.Equal(http.StatusNotFound, w.Code)

	// Владелец может удалить чужое сообщение
	msg, err = env.db.CreateMessage(room.ID, "carol", "owner target")
	req.NoError(err)
	w = env.do(t, "alice", http.MethodDelete,
		fmt.Sprintf("/api/rooms/%s/messages/%s", room.ID, msg.ID), nil)
	req.Equal(http.StatusOK, w.Code)
}
