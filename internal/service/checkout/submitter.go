package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
)

const (
	submissionTTL = 24 * time.Hour

	resultAccepted         = "accepted"
	resultFailed           = "failed"
	resultInFlight         = "in_flight"
	resultAlreadySubmitted = "already_submitted"
)

// CartSettler убирает из корзины позиции принятого заказа.
type CartSettler interface {
	Settle(ctx context.Context, ordered []domain.CartLine)
}

// SubmitterOptions задаёт необязательные зависимости Submitter.
type SubmitterOptions struct {
	Outbox  domain.OutboxRepository
	Metrics *metrics.CartMetrics
	Logger  *log.Entry
	TTL     time.Duration
	Now     func() time.Time
}

// SubmitterOption настраивает Submitter.
type SubmitterOption func(*SubmitterOptions)

// WithOutbox включает запись событий заказа в outbox.
func WithOutbox(repo domain.OutboxRepository) SubmitterOption {
	return func(o *SubmitterOptions) { o.Outbox = repo }
}

// WithSubmitterMetrics подключает метрики отправки.
func WithSubmitterMetrics(m *metrics.CartMetrics) SubmitterOption {
	return func(o *SubmitterOptions) { o.Metrics = m }
}

// WithSubmitterLogger задаёт logger.
func WithSubmitterLogger(logger *log.Entry) SubmitterOption {
	return func(o *SubmitterOptions) { o.Logger = logger }
}

// WithSubmissionTTL задаёт время жизни записи об отправке.
func WithSubmissionTTL(ttl time.Duration) SubmitterOption {
	return func(o *SubmitterOptions) { o.TTL = ttl }
}

// Submitter отправляет заказ ровно один раз на одну корзину.
type Submitter struct {
	orders  domain.OrderAPI
	repo    domain.SubmissionRepository
	cart    CartSettler
	outbox  domain.OutboxRepository
	metrics *metrics.CartMetrics
	logger  *log.Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewSubmitter создаёт Submitter.
func NewSubmitter(orders domain.OrderAPI, repo domain.SubmissionRepository, cart CartSettler, options ...SubmitterOption) *Submitter {
	opts := SubmitterOptions{TTL: submissionTTL, Now: time.Now}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "order-submitter")
	}
	if opts.TTL <= 0 {
		opts.TTL = submissionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Submitter{
		orders:  orders,
		repo:    repo,
		cart:    cart,
		outbox:  opts.Outbox,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		ttl:     opts.TTL,
		now:     opts.Now,
	}
}

// Submit отправляет собранный заказ.
//
// Повторная отправка той же корзины, пока первая не завершилась, даёт
// ErrSubmissionInFlight; после успеха — ErrAlreadySubmitted. При отказе API
// корзина сохраняется, а ошибка возвращается как *domain.SubmissionError.
// После успеха из корзины убираются только заказанные позиции.
func (s *Submitter) Submit(ctx context.Context, assembly Assembly) (domain.CreatedOrder, error) {
	hash, err := RequestHash(assembly)
	if err != nil {
		return domain.CreatedOrder{}, err
	}

	record, err := s.repo.Begin(hash, s.now().UTC().Add(s.ttl))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSubmissionInFlight):
			s.metrics.RecordSubmissionRejected(resultInFlight)
		case errors.Is(err, domain.ErrAlreadySubmitted):
			s.metrics.RecordSubmissionRejected(resultAlreadySubmitted)
		}
		return domain.CreatedOrder{}, err
	}

	logger := s.logger.WithFields(log.Fields{
		"request_hash":    hash,
		"idempotency_key": record.IdempotencyKey,
		"attempt":         record.Attempts,
	})

	started := s.now()
	s.metrics.RecordSubmissionStarted()

	created, err := s.orders.CreateOrder(ctx, assembly.Request, record.IdempotencyKey)
	if err != nil {
		subErr := asSubmissionError(err)
		if markErr := s.repo.MarkFailed(hash, subErr.Error()); markErr != nil {
			logger.WithError(markErr).Warn("failed to mark submission as failed")
		}
		s.metrics.RecordSubmissionFinished(resultFailed, s.now().Sub(started))
		s.enqueue(logger, hash, domain.EventTypeOrderRejected, domain.OrderRejectedEvent{
			RequestHash: hash,
			StatusCode:  subErr.StatusCode,
			Reason:      subErr.Error(),
			Attempt:     record.Attempts,
			RejectedAt:  s.now().UTC(),
		})
		logger.WithError(err).Warn("order submission failed, cart preserved")
		return domain.CreatedOrder{}, subErr
	}

	if err := s.repo.MarkAccepted(hash, created.ID); err != nil {
		logger.WithError(err).Warn("failed to mark submission as accepted")
	}
	// Заказ уже создан: корзину разбираем даже если вызывающий ушёл.
	s.cart.Settle(context.WithoutCancel(ctx), assembly.Cart.Lines)
	s.metrics.RecordSubmissionFinished(resultAccepted, s.now().Sub(started))

	s.enqueue(logger, strconv.FormatInt(created.ID, 10), domain.EventTypeOrderSubmitted, domain.OrderSubmittedEvent{
		OrderID:       created.ID,
		OrderNumber:   created.OrderNumber,
		RequestHash:   hash,
		OrderType:     assembly.Request.OrderType,
		PaymentMethod: assembly.Request.PaymentMethod,
		ItemCount:     len(assembly.Request.Items),
		Subtotal:      assembly.Totals.Subtotal,
		DeliveryFee:   assembly.Totals.DeliveryFee,
		BonusUsed:     assembly.Totals.Bonus,
		Payable:       assembly.Totals.Payable,
		SubmittedAt:   s.now().UTC(),
	})

	logger.WithFields(log.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
	}).Info("order submitted")

	return created, nil
}

// Status возвращает запись об отправке собранного заказа.
func (s *Submitter) Status(assembly Assembly) (domain.SubmissionRecord, error) {
	hash, err := RequestHash(assembly)
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	return s.repo.Get(hash)
}

func (s *Submitter) enqueue(logger *log.Entry, aggregateID, eventType string, payload any) {
	if s.outbox == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Warn("failed to encode order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}); err != nil {
		logger.WithError(err).WithField("event_type", eventType).Warn("failed to enqueue order event")
	}
}

// RequestHash — sha256 от канонического JSON запроса вместе с ID позиций корзины.
// ID выдаются заново при каждом добавлении, поэтому новая корзина с тем же
// содержимым получает другой хэш, а повтор той же корзины — прежний.
func RequestHash(assembly Assembly) (string, error) {
	lineIDs := make([]int64, 0, len(assembly.Cart.Lines))
	for _, line := range assembly.Cart.Lines {
		lineIDs = append(lineIDs, line.ID)
	}
	data, err := json.Marshal(struct {
		LineIDs []int64             `json:"line_ids"`
		Request domain.OrderRequest `json:"request"`
	}{LineIDs: lineIDs, Request: assembly.Request})
	if err != nil {
		return "", fmt.Errorf("encode order request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func asSubmissionError(err error) *domain.SubmissionError {
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		return subErr
	}
	return &domain.SubmissionError{Err: err}
}
