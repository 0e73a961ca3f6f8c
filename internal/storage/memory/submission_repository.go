package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

const (
	defaultSubmissionTTL = 24 * time.Hour
	defaultInFlightLease = 2 * time.Minute
)

// SubmissionOption настраивает in-memory журнал отправок.
type SubmissionOption func(*submissionRepositoryInMemory)

// WithInFlightLease задаёт, сколько отправка может оставаться in_flight без
// обновлений. После этого Begin считает её прерванной и разрешает повтор с тем же ключом.
func WithInFlightLease(lease time.Duration) SubmissionOption {
	return func(r *submissionRepositoryInMemory) {
		if lease > 0 {
			r.lease = lease
		}
	}
}

// WithSubmissionClock подменяет источник времени.
func WithSubmissionClock(now func() time.Time) SubmissionOption {
	return func(r *submissionRepositoryInMemory) {
		if now != nil {
			r.now = now
		}
	}
}

type submissionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.SubmissionRecord
	lease time.Duration
	now   func() time.Time
}

// NewSubmissionRepository создаёт in-memory реализацию SubmissionRepository.
func NewSubmissionRepository(options ...SubmissionOption) domain.SubmissionRepository {
	r := &submissionRepositoryInMemory{
		items: make(map[string]domain.SubmissionRecord),
		lease: defaultInFlightLease,
		now:   time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *submissionRepositoryInMemory) Begin(requestHash string, ttlAt time.Time) (domain.SubmissionRecord, error) {
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.SubmissionRecord{}, domain.ErrSubmissionHashRequired
	}

	now := r.now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(defaultSubmissionTTL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[requestHash]
	if ok {
		switch existing.Status {
		case domain.SubmissionStatusInFlight:
			if r.leaseHeld(existing, now) {
				return existing, domain.ErrSubmissionInFlight
			}
		case domain.SubmissionStatusAccepted:
			return existing, domain.ErrAlreadySubmitted
		}

		// Повтор после отказа или прерванной отправки: ключ идемпотентности сохраняется.
		existing.Status = domain.SubmissionStatusInFlight
		existing.FailureReason = ""
		existing.Attempts++
		existing.TTLAt = ttlAt
		existing.UpdatedAt = now
		r.items[requestHash] = existing
		return existing, nil
	}

	record := domain.SubmissionRecord{
		RequestHash:    requestHash,
		IdempotencyKey: uuid.NewString(),
		Status:         domain.SubmissionStatusInFlight,
		Attempts:       1,
		TTLAt:          ttlAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.items[requestHash] = record
	return record, nil
}

func (r *submissionRepositoryInMemory) Get(requestHash string) (domain.SubmissionRecord, error) {
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.SubmissionRecord{}, domain.ErrSubmissionHashRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[requestHash]
	if !ok {
		return domain.SubmissionRecord{}, domain.ErrSubmissionNotFound
	}
	return record, nil
}

func (r *submissionRepositoryInMemory) MarkAccepted(requestHash string, orderID int64) error {
	return r.update(requestHash, func(record *domain.SubmissionRecord) {
		record.Status = domain.SubmissionStatusAccepted
		record.OrderID = orderID
		record.FailureReason = ""
	})
}

func (r *submissionRepositoryInMemory) MarkFailed(requestHash string, reason string) error {
	return r.update(requestHash, func(record *domain.SubmissionRecord) {
		record.Status = domain.SubmissionStatusFailed
		record.FailureReason = reason
	})
}

func (r *submissionRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = r.now().UTC()
	}
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for hash, record := range r.items {
		if record.TTLAt.After(before) {
			continue
		}
		// Идущую отправку не удаляем, иначе её можно будет запустить с новым ключом.
		if record.Status == domain.SubmissionStatusInFlight && r.leaseHeld(record, now) {
			continue
		}

		delete(r.items, hash)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

func (r *submissionRepositoryInMemory) update(requestHash string, fn func(*domain.SubmissionRecord)) error {
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.ErrSubmissionHashRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[requestHash]
	if !ok {
		return domain.ErrSubmissionNotFound
	}

	fn(&record)
	record.UpdatedAt = r.now().UTC()
	r.items[requestHash] = record
	return nil
}

// leaseHeld сообщает, что in_flight запись обновлялась не раньше чем lease назад.
func (r *submissionRepositoryInMemory) leaseHeld(record domain.SubmissionRecord, now time.Time) bool {
	return now.Sub(record.UpdatedAt) < r.lease
}

var _ domain.SubmissionRepository = (*submissionRepositoryInMemory)(nil)
