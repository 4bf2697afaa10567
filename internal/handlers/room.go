package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/handlers/dto"
	"github.com/thereayou/roomchat/internal/middleware"
	"github.com/thereayou/roomchat/internal/models"
	"github.com/thereayou/roomchat/internal/roomlock"
	"github.com/thereayou/roomchat/internal/websocket"
)

type RoomHandler struct {
	db    *database.Database
	hub   *websocket.Hub
	locks *roomlock.Registry
}

func NewRoomHandler(db *database.Database, hub *websocket.Hub, locks *roomlock.Registry) *RoomHandler {
	return &RoomHandler{db: db, hub: hub, locks: locks}
}

func identityFrom(c *gin.Context) middleware.Identity {
	return c.MustGet(middleware.IdentityKey).(middleware.Identity)
}

func parseRoomID(c *gin.Context) (uuid.UUID, bool) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return uuid.Nil, false
	}
	return roomID, true
}

// CreateRoom создает новую комнату. Создатель становится владельцем
// и попадает в участники, даже если не указал себя в списке.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	identity := identityFrom(c)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.db.CreateRoom(req.Name, identity.Username, req.ParticipantUsernames)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, dto.NewRoomResponse(room))
}

// GetMyRooms получает список комнат, где пользователь состоит участником
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	identity := identityFrom(c)

	rooms, err := h.db.GetRoomsForUser(identity.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rooms"})
		return
	}

	responses := lo.Map(rooms, func(room models.Room, _ int) dto.RoomResponse {
		return dto.NewRoomResponse(&room)
	})

	c.JSON(http.StatusOK, gin.H{"rooms": responses})
}

// GetRoom получает информацию о конкретной комнате
func (h *RoomHandler) GetRoom(c *gin.Context) {
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

	response := dto.NewRoomResponse(room)
	c.JSON(http.StatusOK, gin.H{
		"id":                    response.ID,
		"name":                  response.Name,
		"owner_username":        response.OwnerUsername,
		"participant_usernames": response.ParticipantUsernames,
		"created_at":            response.CreatedAt,
		"online_usernames":      h.hub.RoomUsernames(room.ID),
	})
}

// UpdateRoom обновляет имя и/или состав комнаты. Только для владельца.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	identity := identityFrom(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Изменения состава идут под той же блокировкой, что и вход в комнату
	mu := h.locks.Get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if room.OwnerUsername != identity.Username {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owner can update room"})
		return
	}

	if req.Name != "" {
		if err := h.db.RenameRoom(room.ID, req.Name); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
			return
		}
	}

	if req.ParticipantUsernames != nil {
		before := room.ParticipantUsernames()

		if err := h.db.SetParticipants(room.ID, req.ParticipantUsernames); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
			return
		}

		room, err = h.db.GetRoom(roomID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
			return
		}

		// Исключенные из состава теряют живые подписки сразу
		removed, _ := lo.Difference(before, room.ParticipantUsernames())
		for _, username := range removed {
			h.hub.EvictUser(room.ID, username)
		}
	} else {
		room, err = h.db.GetRoom(roomID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
			return
		}
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(room))
}

// DeleteRoom удаляет комнату вместе с её сообщениями и живыми подписками.
// Только для владельца.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	identity := identityFrom(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	mu := h.locks.Get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if room.OwnerUsername != identity.Username {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owner can delete room"})
		return
	}

	if err := h.db.DeleteRoom(roomID.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete room"})
		return
	}

	h.hub.CloseRoom(roomID)
	h.locks.Forget(roomID)

	c.JSON(http.StatusOK, gin.H{"message": "room deleted successfully"})
}

// AddParticipant добавляет участника. Только для владельца;
// пользователь должен существовать. Повторное добавление — no-op.
func (h *RoomHandler) AddParticipant(c *gin.Context) {
	identity := identityFrom(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	username := c.Param("username")

	mu := h.locks.Get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if room.OwnerUsername != identity.Username {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owner can add participants"})
		return
	}

	if err := h.db.AddParticipant(roomID, username); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user does not exist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add participant"})
		return
	}

	room, err = h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add participant"})
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(room))
}

// RemoveParticipant исключает участника из комнаты. Только для владельца,
// владельца исключить нельзя. Живые подписки снимаются немедленно.
func (h *RoomHandler) RemoveParticipant(c *gin.Context) {
	identity := identityFrom(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	username := c.Param("username")

	mu := h.locks.Get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if room.OwnerUsername != identity.Username {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owner can remove participants"})
		return
	}

	if err := h.db.RemoveParticipant(roomID, username); err != nil {
		switch {
		case errors.Is(err, database.ErrOwnerRemoval):
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot remove owner from room"})
		case errors.Is(err, database.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user does not exist"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove participant"})
		}
		return
	}

	h.hub.EvictUser(roomID, username)

	room, err = h.db.GetRoom(roomID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove participant"})
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(room))
}
