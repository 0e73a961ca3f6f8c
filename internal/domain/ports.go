package domain

import (
	"context"
	"time"
)

// KVStore — долговременное хранилище блобов по ключу (корзина, токен).
type KVStore interface {
	// Get возвращает блоб и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set перезаписывает значение ключа целиком.
	Set(ctx context.Context, key string, blob []byte) error
	// Delete удаляет ключ; отсутствие ключа не считается ошибкой.
	Delete(ctx context.Context, key string) error
}

// MenuAPI — каталог блюд, только чтение.
type MenuAPI interface {
	Categories(ctx context.Context) ([]Category, error)
	MenuItems(ctx context.Context, filter MenuFilter) ([]MenuItem, error)
	MenuItem(ctx context.Context, id int64) (MenuItem, error)
}

// DeliveryAPI рассчитывает доставку на стороне сервера.
type DeliveryAPI interface {
	CalculateDelivery(ctx context.Context, req DeliveryQuoteRequest) (DeliveryQuote, error)
}

// BonusAPI возвращает состояние бонусного счёта.
type BonusAPI interface {
	Bonuses(ctx context.Context) (BonusBalance, error)
}

// OrderAPI принимает заказы. idempotencyKey передаётся заголовком Idempotency-Key.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (CreatedOrder, error)
}

// Notifier показывает пользователю блокирующие сообщения (alert хост-приложения).
type Notifier interface {
	Alert(ctx context.Context, message string) error
}

// OutboxPublisher публикует события из outbox; должен быть идемпотентным.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// SubmissionRepository хранит попытки отправки заказа по хэшу запроса.
type SubmissionRepository interface {
	// Begin регистрирует отправку. Возвращает ErrSubmissionInFlight или
	// ErrAlreadySubmitted, если запрос с таким хэшем уже обрабатывается или принят.
	Begin(requestHash string, ttlAt time.Time) (SubmissionRecord, error)
	Get(requestHash string) (SubmissionRecord, error)
	MarkAccepted(requestHash string, orderID int64) error
	// MarkFailed освобождает хэш для повторной попытки.
	MarkFailed(requestHash string, reason string) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
