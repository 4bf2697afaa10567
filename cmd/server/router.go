package main

import (
	"github.com/gin-gonic/gin"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/handlers"
	"github.com/thereayou/roomchat/internal/middleware"
)

func APIEndpoints(
	r *gin.Engine,
	db *database.Database,
	roomH *handlers.RoomHandler,
	msgH *handlers.HTTPMessageHandler,
	userH *handlers.UserHandler,
	wsH *handlers.WebSocketHandler,
) {
	api := r.Group("/", middleware.UsernameAuth(db))
	{
		api.GET("/users", userH.GetUsers)
		api.GET("/users/me", userH.GetMe)

		api.POST("/rooms", roomH.CreateRoom)
		api.GET("/rooms/my", roomH.GetMyRooms)
		api.GET("/rooms/:id", roomH.GetRoom)
		api.PATCH("/rooms/:id", roomH.UpdateRoom)
		api.DELETE("/rooms/:id", roomH.DeleteRoom)
		api.POST("/rooms/:id/participants/:username", roomH.AddParticipant)
		api.DELETE("/rooms/:id/participants/:username", roomH.RemoveParticipant)

		api.GET("/rooms/:id/messages", msgH.GetRoomMessages)
		api.DELETE("/rooms/:id/messages/:messageID", msgH.DeleteMessage)
	}

	// WebSocket: имя пользователя приходит в query-параметре
	r.GET("/ws", middleware.WSUsernameAuth(db), wsH.HandleWebSocket)
}
