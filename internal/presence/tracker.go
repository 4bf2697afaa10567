package presence

import (
	"context"

	"github.com/go-redis/redis/v8"
)

const onlineKey = "presence:online"

// Tracker держит в Redis множество имён пользователей с живыми
// соединениями. Состояние живёт столько же, сколько процесс:
// при старте сервера множество очищается.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// Reset очищает множество при старте, чтобы не остались
// записи от прошлого запуска
func (t *Tracker) Reset(ctx context.Context) error {
	if t == nil || t.rdb == nil {
		return nil
	}
	return t.rdb.Del(ctx, onlineKey).Err()
}

func (t *Tracker) MarkOnline(ctx context.Context, username string) {
	if t == nil || t.rdb == nil {
		return
	}
	t.rdb.SAdd(ctx, onlineKey, username)
}

func (t *Tracker) MarkOffline(ctx context.Context, username string) {
	if t == nil || t.rdb == nil {
		return
	}
	t.rdb.SRem(ctx, onlineKey, username)
}

func (t *Tracker) IsOnline(ctx context.Context, username string) bool {
	if t == nil || t.rdb == nil {
		return false
	}
	online, err := t.rdb.SIsMember(ctx, onlineKey, username).Result()
	if err != nil {
		return false
	}
	return online
}

func (t *Tracker) OnlineUsernames(ctx context.Context) []string {
	if t == nil || t.rdb == nil {
		return nil
	}
	usernames, err := t.rdb.SMembers(ctx, onlineKey).Result()
	if err != nil {
		return nil
	}
	return usernames
}
