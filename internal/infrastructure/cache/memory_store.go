package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
)

// MemoryStore: хранилище идемпотентности в памяти процесса для запуска без Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

var _ repository.IdempotencyStore = (*MemoryStore)(nil)

// NewMemoryStore запускает фоновую очистку, которая завершается вместе с ctx.
func NewMemoryStore(ctx context.Context) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
	go s.cleanup(ctx, 5*time.Minute)
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	// Просроченные записи не удаляем здесь, это делает cleanup
	if !exists || s.now().After(entry.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("cache: повреждённое значение %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: сериализация %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, exists := s.entries[key]; exists && now.Before(entry.expiresAt) {
		return nil
	}
	s.entries[key] = &memoryEntry{data: data, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
