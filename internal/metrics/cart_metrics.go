package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики корзины, расчёта доставки и отправки заказов.
// Все методы безопасно вызывать на nil.
type CartMetrics struct {
	// Счётчики операций корзины
	cartMutations *prometheus.CounterVec
	cartLines     prometheus.Gauge

	// Персистентность
	persistFailures    prometheus.Counter
	persistStaleSkips  prometheus.Counter
	rehydrateFallbacks prometheus.Counter

	// Оценки доставки по источнику
	quotes *prometheus.CounterVec

	// Отправка заказов
	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	submissionsActive  prometheus.Gauge
}

// NewCartMetrics создаёт метрики в DefaultRegisterer.
func NewCartMetrics() *CartMetrics {
	return NewCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCartMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodorder_cart_mutations_total",
			Help: "Total number of cart mutations grouped by operation",
		}, []string{"op"}),
		cartLines: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "foodorder_cart_lines",
			Help: "Number of distinct lines currently in the cart",
		}),
		persistFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "foodorder_cart_persist_failures_total",
			Help: "Total number of failed cart snapshot writes",
		}),
		persistStaleSkips: registerCounter(registerer, prometheus.CounterOpts{
			Name: "foodorder_cart_persist_stale_skipped_total",
			Help: "Total number of cart snapshot writes skipped because a newer snapshot was already stored",
		}),
		rehydrateFallbacks: registerCounter(registerer, prometheus.CounterOpts{
			Name: "foodorder_cart_rehydrate_fallbacks_total",
			Help: "Total number of times a persisted cart was unreadable and an empty cart was used",
		}),
		quotes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodorder_delivery_quotes_total",
			Help: "Total number of delivery quotes grouped by source",
		}, []string{"source"}),
		submissions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodorder_order_submissions_total",
			Help: "Total number of order submissions grouped by result",
		}, []string{"result"}),
		submissionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "foodorder_order_submission_duration_seconds",
			Help:    "Duration of order submission calls in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		submissionsActive: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "foodorder_order_submissions_in_flight",
			Help: "Number of order submissions currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCartMutation учитывает операцию над корзиной и текущее число позиций.
func (m *CartMetrics) RecordCartMutation(op string, lines int) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
	m.cartLines.Set(float64(lines))
}

// RecordPersistFailure увеличивает счётчик неудачных записей снапшота.
func (m *CartMetrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// RecordPersistStaleSkip учитывает пропущенную устаревшую запись.
func (m *CartMetrics) RecordPersistStaleSkip() {
	if m == nil {
		return
	}
	m.persistStaleSkips.Inc()
}

// RecordRehydrateFallback учитывает откат к пустой корзине при чтении.
func (m *CartMetrics) RecordRehydrateFallback() {
	if m == nil {
		return
	}
	m.rehydrateFallbacks.Inc()
}

// RecordQuote учитывает источник оценки доставки.
func (m *CartMetrics) RecordQuote(source string) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(source).Inc()
}

// RecordSubmissionStarted увеличивает число активных отправок.
func (m *CartMetrics) RecordSubmissionStarted() {
	if m == nil {
		return
	}
	m.submissionsActive.Inc()
}

// RecordSubmissionFinished фиксирует результат и длительность отправки.
func (m *CartMetrics) RecordSubmissionFinished(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.submissionsActive.Dec()
	m.submissions.WithLabelValues(result).Inc()
	m.submissionDuration.Observe(duration.Seconds())
}

// RecordSubmissionRejected учитывает отправку, отклонённую до вызова API.
func (m *CartMetrics) RecordSubmissionRejected(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}
