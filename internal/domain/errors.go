package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка неположительного количества при добавлении позиции.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrInvalidPrice = errors.New("unit price must be non-negative")
	// Ошибка несоответствия суммы позиции цене и количеству.
	ErrLineTotalMismatch = errors.New("line total does not match unit price * quantity")
	// Ошибка несоответствия итога корзины сумме позиций.
	ErrCartTotalMismatch = errors.New("cart total does not match lines sum")
	// Ошибка наличия двух позиций с одинаковым ключом или ID.
	ErrDuplicateLine = errors.New("cart contains duplicate lines")
	// ErrItemUnavailable — блюдо или вариация сейчас недоступны для заказа.
	ErrItemUnavailable = errors.New("menu item is not available")
	// ErrVariationNotFound — у блюда нет вариации с таким именем.
	ErrVariationNotFound = errors.New("menu item variation not found")

	// ErrEmptyCart — попытка оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingDeliveryAddress — для доставки не указана улица.
	ErrMissingDeliveryAddress = errors.New("delivery address is required")
	// ErrInvalidBonusAmount — списание бонусов превышает сумму корзины.
	ErrInvalidBonusAmount = errors.New("bonus amount exceeds cart total")
	// ErrInvalidOrderType — неизвестный тип заказа.
	ErrInvalidOrderType = errors.New("order type must be delivery or pickup")
	// ErrInvalidPaymentMethod — неизвестный способ оплаты.
	ErrInvalidPaymentMethod = errors.New("payment method must be yookassa or cash")

	// ErrPersistenceRead — сохранённая корзина отсутствует или повреждена.
	ErrPersistenceRead = errors.New("persisted cart is unreadable")
	// ErrKeyNotFound возвращается хранилищем, если ключ отсутствует.
	ErrKeyNotFound = errors.New("key not found")
	// ErrQuoteUnavailable — API доставки не ответило, используется локальная оценка.
	ErrQuoteUnavailable = errors.New("delivery quote unavailable")
	// ErrQuoteDiscarded — результат устарел или запрос был отменён.
	ErrQuoteDiscarded = errors.New("delivery quote discarded")
	// ErrNotDeliverable — адрес вне зоны доставки.
	ErrNotDeliverable = errors.New("address is outside the delivery zone")

	// ErrSubmissionInFlight — заказ по этой корзине уже отправляется.
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	// ErrAlreadySubmitted — заказ по этой корзине уже принят.
	ErrAlreadySubmitted = errors.New("order has already been submitted")
	// ErrSubmissionNotFound — запись о попытке отправки не найдена.
	ErrSubmissionNotFound = errors.New("submission record not found")
	// ErrSubmissionHashRequired — не передан хэш запроса.
	ErrSubmissionHashRequired = errors.New("submission request hash is required")

	// ErrInvalidPayload — ответ API не прошёл валидацию.
	ErrInvalidPayload = errors.New("invalid api payload")
	// ErrUnauthorized — API отклонило токен.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// SubmissionError — отказ API заказов. Message показывается пользователю как есть.
// Err хранит исходную ошибку транспорта, если ответа API не было.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("order submission failed: %v", e.Err)
	}
	return fmt.Sprintf("order submission failed (status %d): %s", e.StatusCode, e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsValidationError сообщает, относится ли ошибка к проверкам перед отправкой заказа.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMissingDeliveryAddress) ||
		errors.Is(err, ErrInvalidBonusAmount) ||
		errors.Is(err, ErrInvalidOrderType) ||
		errors.Is(err, ErrInvalidPaymentMethod)
}

const defaultSubmissionMessage = "Failed to place order"

// UserMessage переводит ошибку в текст для пользователя без внутренних деталей.
func UserMessage(err error) string {
	var subErr *SubmissionError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty!"
	case errors.Is(err, ErrMissingDeliveryAddress):
		return "Please enter delivery address"
	case errors.Is(err, ErrInvalidBonusAmount):
		return "Bonus amount cannot exceed the order total"
	case errors.Is(err, ErrInvalidOrderType):
		return "Please choose delivery or pickup"
	case errors.Is(err, ErrInvalidPaymentMethod):
		return "Please choose a payment method"
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be at least 1"
	case errors.Is(err, ErrItemUnavailable), errors.Is(err, ErrVariationNotFound):
		return "This item is not available right now"
	case errors.Is(err, ErrNotDeliverable):
		return "Delivery is not available to this location"
	case errors.Is(err, ErrSubmissionInFlight):
		return "Your order is being placed, please wait"
	case errors.Is(err, ErrAlreadySubmitted):
		return "This order has already been placed"
	case errors.Is(err, ErrUnauthorized):
		return "Please sign in again"
	case errors.As(err, &subErr):
		if subErr.Message == "" {
			return "Error: " + defaultSubmissionMessage
		}
		return "Error: " + subErr.Message
	default:
		return "Error: " + defaultSubmissionMessage
	}
}
