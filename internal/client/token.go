package client

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// TokenStorageKey — ключ bearer-токена в KV-хранилище.
const TokenStorageKey = "token"

// TokenStore читает и сбрасывает закешированный bearer-токен.
// Подпись не проверяется: клиенту нужен только срок действия (exp),
// проверку выполняет сервер.
type TokenStore struct {
	kv     domain.KVStore
	now    func() time.Time
	parser *jwt.Parser
	logger *log.Entry
}

// NewTokenStore создаёт TokenStore поверх kv.
func NewTokenStore(kv domain.KVStore, logger *log.Entry) *TokenStore {
	if logger == nil {
		logger = log.WithField("component", "token-store")
	}
	return &TokenStore{
		kv:     kv,
		now:    time.Now,
		parser: jwt.NewParser(),
		logger: logger,
	}
}

// Token возвращает действующий токен. Просроченный JWT удаляется.
// Токен, который не является JWT, возвращается как есть.
func (s *TokenStore) Token(ctx context.Context) (string, bool) {
	if s == nil || s.kv == nil {
		return "", false
	}

	blob, ok, err := s.kv.Get(ctx, TokenStorageKey)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read cached token")
		return "", false
	}
	token := strings.TrimSpace(string(blob))
	if !ok || token == "" {
		return "", false
	}

	if s.expired(token) {
		s.logger.Info("cached token expired, dropping it")
		s.Clear(ctx)
		return "", false
	}
	return token, true
}

// Save сохраняет токен.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	return s.kv.Set(ctx, TokenStorageKey, []byte(strings.TrimSpace(token)))
}

// Clear удаляет токен.
func (s *TokenStore) Clear(ctx context.Context) {
	if s == nil || s.kv == nil {
		return
	}
	if err := s.kv.Delete(ctx, TokenStorageKey); err != nil {
		s.logger.WithError(err).Warn("failed to clear cached token")
	}
}

func (s *TokenStore) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := s.parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(s.now())
}
