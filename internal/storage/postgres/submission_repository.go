package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

const (
	defaultSubmissionTTL = 24 * time.Hour
	defaultInFlightLease = 2 * time.Minute
)

const submissionColumns = `request_hash, idempotency_key, status, order_id, failure_reason,
	attempts, ttl_at, created_at, updated_at`

type submissionRepository struct {
	db    *sql.DB
	lease time.Duration
}

// SubmissionOption настраивает журнал отправок.
type SubmissionOption func(*submissionRepository)

// WithInFlightLease задаёт, сколько запись может оставаться in_flight без обновлений.
// Более старую запись Begin считает прерванной (например, процесс упал во время
// отправки) и разрешает повтор с тем же ключом идемпотентности.
func WithInFlightLease(lease time.Duration) SubmissionOption {
	return func(r *submissionRepository) {
		if lease > 0 {
			r.lease = lease
		}
	}
}

// NewSubmissionRepository создаёт журнал отправок заказа в PostgreSQL.
// Им можно пользоваться из нескольких экземпляров сервиса одновременно.
func NewSubmissionRepository(store *Store, options ...SubmissionOption) domain.SubmissionRepository {
	r := &submissionRepository{db: store.DB(), lease: defaultInFlightLease}
	for _, option := range options {
		option(r)
	}
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (domain.SubmissionRecord, error) {
	var (
		rec    domain.SubmissionRecord
		status string
	)
	if err := row.Scan(
		&rec.RequestHash,
		&rec.IdempotencyKey,
		&status,
		&rec.OrderID,
		&rec.FailureReason,
		&rec.Attempts,
		&rec.TTLAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return domain.SubmissionRecord{}, err
	}
	rec.Status = domain.SubmissionStatus(status)
	if !rec.Status.Valid() {
		return domain.SubmissionRecord{}, fmt.Errorf("invalid submission status %q for %s", status, rec.RequestHash)
	}
	return rec, nil
}

func (r *submissionRepository) Begin(requestHash string, ttlAt time.Time) (domain.SubmissionRecord, error) {
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.SubmissionRecord{}, domain.ErrSubmissionHashRequired
	}

	now := time.Now().UTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(defaultSubmissionTTL)
	}

	ctx, cancel := opContext()
	defer cancel()

	rec, err := scanSubmission(r.db.QueryRowContext(ctx, `
		INSERT INTO order_submissions (
			request_hash, idempotency_key, status, attempts, ttl_at, created_at, updated_at
		) VALUES ($1, $2, $3, 1, $4, $5, $5)
		RETURNING `+submissionColumns,
		requestHash, uuid.NewString(), string(domain.SubmissionStatusInFlight), ttlAt, now,
	))
	if err == nil {
		return rec, nil
	}
	if !isUniqueViolation(err) {
		return domain.SubmissionRecord{}, fmt.Errorf("begin submission: %w", err)
	}

	// Хэш уже известен: повтор разрешён после отказа или прерванной отправки,
	// ключ сохраняется.
	rec, err = scanSubmission(r.db.QueryRowContext(ctx, `
		UPDATE order_submissions
		SET status = $2, failure_reason = '', attempts = attempts + 1, ttl_at = $3, updated_at = $4
		WHERE request_hash = $1 AND (status = $5 OR (status = $2 AND updated_at < $6))
		RETURNING `+submissionColumns,
		requestHash, string(domain.SubmissionStatusInFlight), ttlAt, now, string(domain.SubmissionStatusFailed),
		now.Add(-r.lease),
	))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.SubmissionRecord{}, fmt.Errorf("retry submission: %w", err)
	}

	existing, err := r.Get(requestHash)
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	switch existing.Status {
	case domain.SubmissionStatusAccepted:
		return existing, domain.ErrAlreadySubmitted
	default:
		return existing, domain.ErrSubmissionInFlight
	}
}

func (r *submissionRepository) Get(requestHash string) (domain.SubmissionRecord, error) {
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.SubmissionRecord{}, domain.ErrSubmissionHashRequired
	}

	ctx, cancel := opContext()
	defer cancel()

	rec, err := scanSubmission(r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM order_submissions WHERE request_hash = $1`, requestHash))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SubmissionRecord{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("get submission: %w", err)
	}
	return rec, nil
}

func (r *submissionRepository) MarkAccepted(requestHash string, orderID int64) error {
	return r.update(requestHash, `
		UPDATE order_submissions
		SET status = $2, order_id = $3, failure_reason = '', updated_at = $4
		WHERE request_hash = $1
	`, string(domain.SubmissionStatusAccepted), orderID)
}

func (r *submissionRepository) MarkFailed(requestHash string, reason string) error {
	return r.update(requestHash, `
		UPDATE order_submissions
		SET status = $2, failure_reason = $3, updated_at = $4
		WHERE request_hash = $1
	`, string(domain.SubmissionStatusFailed), reason)
}

func (r *submissionRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := opContext()
	defer cancel()

	var (
		res sql.Result
		err error
	)
	// Идущие отправки (in_flight в пределах аренды) не удаляются.
	inFlight := string(domain.SubmissionStatusInFlight)
	staleBefore := time.Now().UTC().Add(-r.lease)
	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM order_submissions
			WHERE request_hash IN (
				SELECT request_hash FROM order_submissions
				WHERE ttl_at <= $1 AND (status <> $2 OR updated_at < $3)
				ORDER BY ttl_at
				LIMIT $4
			)
		`, before, inFlight, staleBefore, limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM order_submissions WHERE ttl_at <= $1 AND (status <> $2 OR updated_at < $3)
		`, before, inFlight, staleBefore)
	}
	if err != nil {
		return 0, fmt.Errorf("delete expired submissions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("submission rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *submissionRepository) update(requestHash, query string, status string, value any) error {
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.ErrSubmissionHashRequired
	}

	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, requestHash, status, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark submission %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("submission rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

var _ domain.SubmissionRepository = (*submissionRepository)(nil)
