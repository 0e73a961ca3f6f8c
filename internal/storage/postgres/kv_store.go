package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// KVStore хранит блобы в таблице kv_store.
type KVStore struct {
	store *Store
}

// NewKVStore создаёт KV-хранилище поверх Store. Схема должна быть применена.
func NewKVStore(store *Store) *KVStore {
	return &KVStore{store: store}
}

// Get возвращает блоб по ключу.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	err := s.store.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres kv get %q: %w", key, err)
	}
	return blob, true, nil
}

// Set перезаписывает значение ключа.
func (s *KVStore) Set(ctx context.Context, key string, blob []byte) error {
	if blob == nil {
		blob = []byte{}
	}
	if _, err := s.store.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, blob); err != nil {
		return fmt.Errorf("postgres kv set %q: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres kv delete %q: %w", key, err)
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

var _ domain.KVStore = (*KVStore)(nil)
