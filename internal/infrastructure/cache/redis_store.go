package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
)

const keyPrefix = "trades:idempotency:"

// NewRedisClient разбирает REDIS_URL. Адрес в формате docker (redis:6379) принимается как есть.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Count(rawURL, ":") == 1 && !strings.Contains(rawURL, "@") && !strings.Contains(rawURL, "//") {
		opts = &redis.Options{Addr: rawURL}
	} else {
		parsed, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("cache: некорректный REDIS_URL: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis недоступен: %w", err)
	}
	return client, nil
}

// RedisStore хранит результаты идемпотентных запросов в Redis с TTL.
type RedisStore struct {
	client redis.UniversalClient
}

var _ repository.IdempotencyStore = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: чтение %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache: повреждённое значение %s: %w", key, err)
	}
	return true, nil
}

// Set не перезаписывает уже сохранённый результат: первый ответ остаётся эталонным.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: сериализация %s: %w", key, err)
	}
	if err := s.client.SetNX(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: запись %s: %w", key, err)
	}
	return nil
}
