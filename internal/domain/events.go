package domain

import "time"

// Типы событий, которые кладутся в outbox.
const (
	EventTypeOrderSubmitted = "order.submitted"
	EventTypeOrderRejected  = "order.rejected"
)

// AggregateTypeOrder — тип агрегата для событий заказа.
const AggregateTypeOrder = "order"

// OrderSubmittedEvent — полезная нагрузка события order.submitted.
type OrderSubmittedEvent struct {
	OrderID       int64         `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	RequestHash   string        `json:"request_hash"`
	OrderType     OrderType     `json:"order_type"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ItemCount     int           `json:"item_count"`
	Subtotal      Money         `json:"subtotal"`
	DeliveryFee   Money         `json:"delivery_fee"`
	BonusUsed     Money         `json:"bonus_used"`
	Payable       Money         `json:"payable"`
	SubmittedAt   time.Time     `json:"submitted_at"`
}

// OrderRejectedEvent — полезная нагрузка события order.rejected.
type OrderRejectedEvent struct {
	RequestHash string    `json:"request_hash"`
	StatusCode  int       `json:"status_code,omitempty"`
	Reason      string    `json:"reason"`
	Attempt     int       `json:"attempt"`
	RejectedAt  time.Time `json:"rejected_at"`
}
