package domain

import "strings"

// OrderType — способ получения заказа.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// Valid проверяет, что тип заказа поддерживается.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDelivery, OrderTypePickup:
		return true
	default:
		return false
	}
}

// PaymentMethod — способ оплаты, который понимает API заказов.
type PaymentMethod string

const (
	// PaymentMethodYooKassa — онлайн-оплата через платёжный шлюз.
	PaymentMethodYooKassa PaymentMethod = "yookassa"
	// PaymentMethodCash — оплата наличными при получении.
	PaymentMethodCash PaymentMethod = "cash"
)

// Valid проверяет, что способ оплаты поддерживается.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentMethodYooKassa, PaymentMethodCash:
		return true
	default:
		return false
	}
}

// Coordinates — географическая точка.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Known сообщает, заданы ли координаты. (0,0) означает «не выбрано».
func (c Coordinates) Known() bool {
	return c.Lat != 0 && c.Lon != 0
}

// Address — адрес доставки в формате API заказов.
type Address struct {
	Street      string      `json:"street"`
	Building    string      `json:"building"`
	Apartment   string      `json:"apartment,omitempty"`
	Entrance    string      `json:"entrance,omitempty"`
	Floor       string      `json:"floor,omitempty"`
	Intercom    string      `json:"intercom,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// HasStreet сообщает, указана ли улица.
func (a *Address) HasStreet() bool {
	return a != nil && strings.TrimSpace(a.Street) != ""
}

// OrderItem — позиция запроса на создание заказа.
type OrderItem struct {
	MenuItemID  int64  `json:"menu_item_id"`
	VariationID *int64 `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

// OrderRequest — тело запроса к API создания заказа. Имена полей фиксированы API.
type OrderRequest struct {
	OrderType       OrderType     `json:"order_type"`
	Items           []OrderItem   `json:"items"`
	DeliveryAddress *Address      `json:"delivery_address,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	BonusToUse      *Money        `json:"bonus_to_use,omitempty"`
}

// CreatedOrder — ответ API на успешное создание заказа.
type CreatedOrder struct {
	ID            int64
	OrderNumber   string
	Status        string
	OrderType     OrderType
	PaymentMethod PaymentMethod
	PaymentStatus string
	Subtotal      Money
	DeliveryCost  Money
	BonusUsed     Money
	TotalAmount   Money
}
