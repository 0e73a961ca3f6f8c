// Package quote выбирает оценку доставки: ответ сервера, а при его отсутствии локальный тариф.
package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
)

const (
	defaultMaxFailures  = 3
	defaultResetTimeout = 30 * time.Second
	defaultCacheSize    = 64
	operationCalculate  = "calculate_delivery"
)

// Options задаёт необязательные параметры Resolver.
type Options struct {
	Breaker   *CircuitBreaker
	Estimator pricing.DeliveryFeeEstimator
	Metrics   *metrics.CartMetrics
	Logger    *log.Entry
	CacheSize int
}

// Option настраивает Resolver.
type Option func(*Options)

// WithBreaker задаёт circuit breaker для API доставки.
func WithBreaker(cb *CircuitBreaker) Option {
	return func(o *Options) { o.Breaker = cb }
}

// WithMetrics подключает метрики источника оценки.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithCacheSize ограничивает число запомненных серверных оценок.
func WithCacheSize(n int) Option {
	return func(o *Options) { o.CacheSize = n }
}

type cacheKey struct {
	lat, lon float64
	subtotal domain.Money
}

// Resolver возвращает оценку доставки. Полученная от сервера оценка
// запоминается и больше не заменяется локальной.
type Resolver struct {
	api       domain.DeliveryAPI
	origin    domain.Coordinates
	breaker   *CircuitBreaker
	estimator pricing.DeliveryFeeEstimator
	metrics   *metrics.CartMetrics
	logger    *log.Entry
	cacheSize int

	mu    sync.Mutex
	seq   uint64
	cache map[cacheKey]domain.DeliveryQuote
}

// NewResolver создаёт Resolver. origin — координаты ресторана для локальной оценки.
// api может быть nil: тогда всегда используется локальный тариф.
func NewResolver(api domain.DeliveryAPI, origin domain.Coordinates, options ...Option) *Resolver {
	opts := Options{
		Estimator: pricing.NewDeliveryFeeEstimator(),
		CacheSize: defaultCacheSize,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "quote-resolver")
	}
	if opts.Breaker == nil {
		opts.Breaker = NewCircuitBreaker(defaultMaxFailures, defaultResetTimeout, opts.Logger)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	return &Resolver{
		api:       api,
		origin:    origin,
		breaker:   opts.Breaker,
		estimator: opts.Estimator,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		cacheSize: opts.CacheSize,
		cache:     make(map[cacheKey]domain.DeliveryQuote),
	}
}

// Resolve возвращает оценку доставки для координат и суммы корзины.
//
// Ошибки API не возвращаются: вместо них отдаётся локальная оценка.
// Если ctx отменён или после этого вызова уже начат более новый,
// результат отбрасывается и возвращается ErrQuoteDiscarded.
func (r *Resolver) Resolve(ctx context.Context, coords domain.Coordinates, subtotal domain.Money) (domain.DeliveryQuote, error) {
	if !coords.Known() {
		r.metrics.RecordQuote(string(domain.QuoteSourceNone))
		return domain.NoDeliveryQuote(), nil
	}

	key := cacheKey{lat: coords.Lat, lon: coords.Lon, subtotal: subtotal}

	r.mu.Lock()
	r.seq++
	ticket := r.seq
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		r.metrics.RecordQuote(string(domain.QuoteSourceServer))
		return cached, nil
	}
	r.mu.Unlock()

	quote, err := r.fetch(ctx, coords, subtotal)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.DeliveryQuote{}, fmt.Errorf("%w: %v", domain.ErrQuoteDiscarded, ctxErr)
	}

	r.mu.Lock()
	if ticket != r.seq {
		r.mu.Unlock()
		return domain.DeliveryQuote{}, domain.ErrQuoteDiscarded
	}
	if err == nil {
		r.storeLocked(key, quote)
		r.mu.Unlock()
		r.metrics.RecordQuote(string(domain.QuoteSourceServer))
		return quote, nil
	}
	r.mu.Unlock()

	if !errors.Is(err, ErrCircuitOpen) {
		r.logger.WithError(err).Warn("delivery quote unavailable, using local estimate")
	}

	estimate := r.Estimate(coords)
	r.metrics.RecordQuote(string(domain.QuoteSourceEstimate))
	return estimate, nil
}

// Estimate — локальная оценка по расстоянию от ресторана.
func (r *Resolver) Estimate(coords domain.Coordinates) domain.DeliveryQuote {
	return r.estimator.Estimate(pricing.HaversineKm(r.origin, coords))
}

// Breaker возвращает circuit breaker API доставки (для health-проверки).
func (r *Resolver) Breaker() *CircuitBreaker { return r.breaker }

// Forget сбрасывает запомненные серверные оценки (например, после смены тарифов).
func (r *Resolver) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[cacheKey]domain.DeliveryQuote)
}

func (r *Resolver) fetch(ctx context.Context, coords domain.Coordinates, subtotal domain.Money) (domain.DeliveryQuote, error) {
	if r.api == nil {
		return domain.DeliveryQuote{}, domain.ErrQuoteUnavailable
	}

	var quote domain.DeliveryQuote
	err := r.breaker.Execute(operationCalculate, func() error {
		q, err := r.api.CalculateDelivery(ctx, domain.DeliveryQuoteRequest{
			Coordinates: coords,
			OrderValue:  subtotal,
		})
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		return domain.DeliveryQuote{}, fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
	}

	quote.Source = domain.QuoteSourceServer
	if quote.DistanceKm < 0 {
		quote.DistanceKm = 0
	}
	return quote, nil
}

func (r *Resolver) storeLocked(key cacheKey, quote domain.DeliveryQuote) {
	if len(r.cache) >= r.cacheSize {
		for k := range r.cache {
			delete(r.cache, k)
			break
		}
	}
	r.cache[key] = quote
}
