package domain

import "time"

// SubmissionStatus описывает жизненный цикл попытки отправки заказа.
type SubmissionStatus string

const (
	// SubmissionStatusInFlight означает, что запрос отправлен и ответа ещё нет.
	SubmissionStatusInFlight SubmissionStatus = "in_flight"
	// SubmissionStatusAccepted означает, что API создало заказ.
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	// SubmissionStatusFailed означает отказ; хэш можно отправить повторно.
	SubmissionStatusFailed SubmissionStatus = "failed"
)

// SubmissionRecord хранит состояние отправки по хэшу запроса.
type SubmissionRecord struct {
	RequestHash string
	// IdempotencyKey передаётся API и остаётся тем же при повторе после ошибки.
	IdempotencyKey string
	Status         SubmissionStatus
	OrderID        int64
	FailureReason  string
	Attempts       int
	TTLAt          time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusInFlight, SubmissionStatusAccepted, SubmissionStatusFailed:
		return true
	default:
		return false
	}
}
