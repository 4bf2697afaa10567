package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/thereayou/roomchat/internal/ai"
	"github.com/thereayou/roomchat/internal/database"
	"github.com/thereayou/roomchat/internal/handlers"
	"github.com/thereayou/roomchat/internal/presence"
	"github.com/thereayou/roomchat/internal/roomlock"
	ws "github.com/thereayou/roomchat/internal/websocket"
)

type Server struct {
	Router *gin.Engine
	DB     *database.Database
	Redis  *redis.Client
	Hub    *ws.Hub
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	// Redis не обязателен: без него просто нет трекинга присутствия
	var rdb *redis.Client
	var tracker *presence.Tracker
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(redisOpts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Redis connect failed: %v", err)
		}
		tracker = presence.NewTracker(rdb)
		if err := tracker.Reset(context.Background()); err != nil {
			log.Printf("Failed to reset presence set: %v", err)
		}
	} else {
		log.Println("REDIS_URL not set, presence tracking disabled")
	}

	hub := ws.NewHub(tracker)
	go hub.Run()

	locks := roomlock.NewRegistry()

	var generator ai.Generator
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		generator = ai.NewGeminiGenerator(apiKey)
	} else {
		log.Println("GEMINI_API_KEY not set, assistant replies disabled")
	}

	aiTimeout := 30 * time.Second
	if raw := os.Getenv("AI_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			aiTimeout = parsed
		}
	}

	chatH := handlers.NewChatHandler(dbConn, hub, locks, generator, aiTimeout)
	wsH := handlers.NewWebSocketHandler(hub, chatH)
	roomH := handlers.NewRoomHandler(dbConn, hub, locks)
	msgH := handlers.NewHTTPMessageHandler(dbConn)
	userH := handlers.NewUserHandler(dbConn, tracker)

	router := gin.Default()
	APIEndpoints(router, dbConn, roomH, msgH, userH, wsH)

	return &Server{
		Router: router,
		DB:     dbConn,
		Redis:  rdb,
		Hub:    hub,
	}
}

func (s *Server) Run() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	if err := s.Router.Run(":" + port); err != nil {
		log.Fatalf("Server run error: %v", err)
	}
}
