package roomlock

import (
	"sync"

	"github.com/google/uuid"
)

// Registry выдает по одному мьютексу на комнату. Под ним идут вход,
// отправка сообщения и любые изменения состава.
type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Get возвращает мьютекс комнаты, создавая его при первом обращении
func (r *Registry) Get(roomID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	return lock
}

// Forget освобождает запись после удаления комнаты.
// Вызывается, когда комната уже удалена под её же мьютексом.
func (r *Registry) Forget(roomID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.locks, roomID)
}
