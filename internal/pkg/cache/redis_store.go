package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

const redisKeyPrefix = "lottery"

// RedisStore keeps cache entries in Redis under lottery:<game>:<kind>.
// Entries carry their own timestamp and are stored without a server-side
// expiry, so stale reads stay possible after the TTL; ClearExpired sweeps.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl, now: time.Now}, nil
}

func redisKey(game models.GameType, kind string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, game, kind)
}

func (s *RedisStore) Save(game models.GameType, kind string, payload any) error {
	e, err := newEntry(game, kind, payload, s.now())
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return s.client.Set(context.Background(), redisKey(game, kind), data, 0).Err()
}

func (s *RedisStore) Load(game models.GameType, kind string, out any) (bool, error) {
	e, ok, err := s.read(game, kind)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		slog.Warn("cache payload undecodable, treating as miss",
			"game", game, "kind", kind, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) IsValid(game models.GameType, kind string) bool {
	e, ok, err := s.read(game, kind)
	return err == nil && ok && e.valid(s.now(), s.ttl)
}

func (s *RedisStore) read(game models.GameType, kind string) (*entry, bool, error) {
	data, err := s.client.Get(context.Background(), redisKey(game, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Warn("cache entry corrupt, treating as miss",
			"game", game, "kind", kind, "error", err)
		return nil, false, nil
	}
	if e.Timestamp.IsZero() {
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *RedisStore) ClearExpired() error {
	ctx := context.Background()
	for _, game := range models.AllGames {
		keys, err := s.client.Keys(ctx, redisKey(game, "*")).Result()
		if err != nil {
			return fmt.Errorf("redis keys: %w", err)
		}
		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var e entry
			if err := json.Unmarshal(data, &e); err == nil && e.valid(s.now(), s.ttl) {
				continue
			}
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("redis del %s: %w", key, err)
			}
			slog.Info("removed expired cache entry", "key", key)
		}
	}
	return nil
}

func (s *RedisStore) ClearAll(game models.GameType) error {
	ctx := context.Background()
	games := models.AllGames
	if game != "" {
		games = []models.GameType{game}
	}
	for _, g := range games {
		keys, err := s.client.Keys(ctx, redisKey(g, "*")).Result()
		if err != nil {
			return fmt.Errorf("redis keys: %w", err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
