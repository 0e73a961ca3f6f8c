package grpcsvc

import (
	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
	"github.com/vladislavdragonenkov/foodorder/internal/service/checkout"
)

// GetCartRequest — запрос текущей корзины.
type GetCartRequest struct{}

// CartResponse — снимок корзины после операции.
type CartResponse struct {
	Cart      domain.Cart `json:"cart"`
	ItemCount int         `json:"item_count"`
}

// AddItemRequest добавляет блюдо. Если UnitPrice не задан, цена и название
// берутся из меню по MenuItemID и VariationName.
type AddItemRequest struct {
	MenuItemID    int64         `json:"menu_item_id"`
	VariationName string        `json:"variation_name,omitempty"`
	Quantity      int           `json:"quantity"`
	Notes         string        `json:"notes,omitempty"`
	Name          string        `json:"name,omitempty"`
	UnitPrice     *domain.Money `json:"unit_price,omitempty"`
	VariationID   *int64        `json:"variation_id,omitempty"`
}

// AddItemResponse — добавленная (или слитая) позиция и корзина.
type AddItemResponse struct {
	Line domain.CartLine `json:"line"`
	CartResponse
}

// UpdateQuantityRequest задаёт количество позиции; 0 и меньше удаляет её.
type UpdateQuantityRequest struct {
	LineID   int64 `json:"line_id"`
	Quantity int   `json:"quantity"`
}

// RemoveItemRequest удаляет позицию.
type RemoveItemRequest struct {
	LineID int64 `json:"line_id"`
}

// ClearCartRequest очищает корзину.
type ClearCartRequest struct{}

// QuoteDeliveryRequest — оценка доставки для точки на карте и текущей суммы корзины.
type QuoteDeliveryRequest struct {
	Coordinates domain.Coordinates `json:"coordinates"`
}

// Quote — оценка доставки в ответах.
type Quote struct {
	Fee          domain.Money       `json:"fee"`
	DistanceKm   float64            `json:"distance_km"`
	ETAMinutes   int                `json:"eta_minutes"`
	Deliverable  bool               `json:"deliverable"`
	FreeDelivery bool               `json:"free_delivery"`
	Source       domain.QuoteSource `json:"source"`
}

// QuoteDeliveryResponse — результат оценки.
type QuoteDeliveryResponse struct {
	Quote    Quote        `json:"quote"`
	Subtotal domain.Money `json:"subtotal"`
}

// AllocateBonusRequest — сколько бонусов клиент хочет списать.
type AllocateBonusRequest struct {
	Requested domain.Money `json:"requested"`
}

// AllocateBonusResponse — применённое списание и баланс.
type AllocateBonusResponse struct {
	Requested domain.Money `json:"requested"`
	Applied   domain.Money `json:"applied"`
	Available domain.Money `json:"available"`
	Total     domain.Money `json:"total"`
	Pending   domain.Money `json:"pending"`
}

// CheckoutRequest — выбор на экране оформления.
type CheckoutRequest struct {
	OrderType       domain.OrderType     `json:"order_type"`
	DeliveryAddress *domain.Address      `json:"delivery_address,omitempty"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	BonusToUse      domain.Money         `json:"bonus_to_use"`
	Notes           string               `json:"notes,omitempty"`
}

// Totals — разбивка суммы к оплате.
type Totals struct {
	Subtotal    domain.Money `json:"subtotal"`
	DeliveryFee domain.Money `json:"delivery_fee"`
	Bonus       domain.Money `json:"bonus"`
	Payable     domain.Money `json:"payable"`
}

// PreviewOrderResponse — заказ в том виде, в котором он уйдёт в API.
type PreviewOrderResponse struct {
	Order  domain.OrderRequest `json:"order"`
	Totals Totals              `json:"totals"`
	Quote  Quote               `json:"quote"`
}

// SubmitOrderResponse — созданный заказ.
type SubmitOrderResponse struct {
	OrderID       int64                `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	Status        string               `json:"status"`
	PaymentStatus string               `json:"payment_status,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	TotalAmount   domain.Money         `json:"total_amount"`
	Totals        Totals               `json:"totals"`
}

func (r *CheckoutRequest) toCheckout() checkout.Checkout {
	return checkout.Checkout{
		OrderType:      r.OrderType,
		Address:        r.DeliveryAddress,
		PaymentMethod:  r.PaymentMethod,
		RequestedBonus: r.BonusToUse,
		Notes:          r.Notes,
	}
}

func toQuote(q domain.DeliveryQuote) Quote {
	return Quote{
		Fee:          q.Fee,
		DistanceKm:   q.DistanceKm,
		ETAMinutes:   q.ETAMinutes,
		Deliverable:  q.Deliverable,
		FreeDelivery: q.FreeDelivery,
		Source:       q.Source,
	}
}

func toTotals(t pricing.Totals) Totals {
	return Totals{
		Subtotal:    t.Subtotal,
		DeliveryFee: t.DeliveryFee,
		Bonus:       t.Bonus,
		Payable:     t.Payable,
	}
}

func toCartResponse(c domain.Cart) CartResponse {
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return CartResponse{Cart: c, ItemCount: c.ItemCount()}
}
