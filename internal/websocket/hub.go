package websocket

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomchat/internal/presence"
)

// Hub — реестр живых соединений: кто подключен, под каким именем
// и на какие комнаты подписан. Состояние только в памяти,
// после рестарта процесса собирается заново.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по имени (один пользователь может иметь несколько соединений)
	userClients map[string]map[uuid.UUID]*Client

	// Подписки на комнаты. Участие в комнате (БД) и подписка — разные вещи:
	// участник без подписки ничего не получает
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	// Каналы для регистрации/отмены регистрации
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	tracker *presence.Tracker

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub. tracker может быть nil —
// тогда присутствие в Redis не отслеживается.
func NewHub(tracker *presence.Tracker) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]*Client),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		tracker:     tracker,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.closeSend()
		client.Conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[string]map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	h.clients[client.ID] = client

	firstConn := false
	if _, ok := h.userClients[client.Username]; !ok {
		h.userClients[client.Username] = make(map[uuid.UUID]*Client)
		firstConn = true
	}
	h.userClients[client.Username][client.ID] = client

	h.mu.Unlock()

	// Поход в Redis — вне критической секции
	if firstConn {
		h.tracker.MarkOnline(context.Background(), client.Username)
	}

	log.Printf("Client registered: %s (user %q)", client.ID, client.Username)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}

	// Обрыв соединения снимает все подписки без явного leave
	for roomID := range client.Rooms {
		h.removeFromRoomUnsafe(client, roomID)
	}

	lastConn := false
	if userClients, ok := h.userClients[client.Username]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.Username)
			lastConn = true
		}
	}

	delete(h.clients, client.ID)

	h.mu.Unlock()

	client.closeSend()

	if lastConn {
		h.tracker.MarkOffline(context.Background(), client.Username)
	}

	log.Printf("Client unregistered: %s (user %q)", client.ID, client.Username)
}

// JoinRoom подписывает клиента на комнату. Повторный вход — no-op.
// Проверка участия выполняется выше, до вызова.
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()
}

// LeaveRoom снимает подписку. Отсутствующая подписка — не ошибка.
func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	if _, ok := room[client.ID]; ok {
		delete(room, client.ID)
		client.mu.Lock()
		delete(client.Rooms, roomID)
		client.mu.Unlock()

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastToRoom доставляет событие текущему срезу подписчиков комнаты.
// Доставка best-effort: переполненная очередь одного клиента
// не мешает остальным.
func (h *Hub) BroadcastToRoom(roomID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			select {
			case client.Send <- data:
			default:
				log.Printf("Client %s send channel full, dropping event", client.ID)
			}
		}
	}
}

// EvictUser немедленно снимает подписки всех соединений username
// на комнату. Вызывается при исключении участника из состава.
func (h *Hub) EvictUser(roomID uuid.UUID, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.userClients[username]
	if !ok {
		return
	}

	for _, client := range clients {
		if _, subscribed := h.rooms[roomID][client.ID]; !subscribed {
			continue
		}
		h.removeFromRoomUnsafe(client, roomID)
		client.SendEvent(TypeRemovedFromRoom, &roomID, nil)
	}
}

// CloseRoom снимает все живые подписки удалённой комнаты
func (h *Hub) CloseRoom(roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	for _, client := range room {
		client.mu.Lock()
		delete(client.Rooms, roomID)
		client.mu.Unlock()
		client.SendEvent(TypeRoomDeleted, &roomID, nil)
	}

	delete(h.rooms, roomID)
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.SendEvent(TypePing, nil, nil)
	}
}

// RoomUsernames возвращает имена пользователей, подписанных на комнату
func (h *Hub) RoomUsernames(roomID uuid.UUID) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			seen[client.Username] = true
		}
	}

	usernames := make([]string, 0, len(seen))
	for username := range seen {
		usernames = append(usernames, username)
	}
	return usernames
}

// OnlineUsernames возвращает имена пользователей с живыми соединениями
func (h *Hub) OnlineUsernames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	usernames := make([]string, 0, len(h.userClients))
	for username := range h.userClients {
		usernames = append(usernames, username)
	}
	return usernames
}
