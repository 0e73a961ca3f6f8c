// Package notify показывает пользователю блокирующие сообщения.
package notify

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// New возвращает host, если он задан, иначе запасной notifier на логах.
func New(host domain.Notifier, logger *log.Entry) domain.Notifier {
	if host != nil {
		return host
	}
	return NewLogNotifier(logger)
}

// LogNotifier пишет сообщения в лог и хранит последние из них,
// чтобы хост без собственного UI мог забрать их позже.
type LogNotifier struct {
	mu       sync.Mutex
	logger   *log.Entry
	messages []string
	limit    int
}

const defaultHistoryLimit = 32

// NewLogNotifier создаёт notifier на логах.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger, limit: defaultHistoryLimit}
}

// Alert записывает сообщение.
func (n *LogNotifier) Alert(_ context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	n.mu.Lock()
	n.messages = append(n.messages, message)
	if len(n.messages) > n.limit {
		n.messages = n.messages[len(n.messages)-n.limit:]
	}
	n.mu.Unlock()

	n.logger.WithField("alert", message).Warn("user alert")
	return nil
}

// Drain возвращает накопленные сообщения и очищает историю.
func (n *LogNotifier) Drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.messages
	n.messages = nil
	return out
}

// Func адаптирует функцию к domain.Notifier.
type Func func(ctx context.Context, message string) error

// Alert вызывает функцию.
func (f Func) Alert(ctx context.Context, message string) error { return f(ctx, message) }

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = Func(nil)
)
