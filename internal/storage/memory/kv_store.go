// Package memory содержит in-memory реализации хранилищ для локальной разработки и тестов.
package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// KVStore — потокобезопасное хранилище блобов в памяти.
type KVStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewKVStore создаёт пустое хранилище.
func NewKVStore() *KVStore {
	return &KVStore{items: make(map[string][]byte)}
}

// Get возвращает копию блоба.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

// Set сохраняет копию блоба.
func (s *KVStore) Set(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = append([]byte(nil), blob...)
	return nil
}

// Delete удаляет ключ.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Ping всегда успешен; нужен для health checker.
func (s *KVStore) Ping(context.Context) error { return nil }

var _ domain.KVStore = (*KVStore)(nil)
