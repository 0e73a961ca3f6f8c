package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// Envelope — обёртка ответов API: {success, data, message}.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	// Detail заполняет FastAPI в ответах с ошибкой.
	Detail json.RawMessage `json:"detail,omitempty"`
}

// VariationDTO — вариация блюда в формате API.
type VariationDTO struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	PriceDifference domain.Money `json:"price_difference"`
	IsAvailable     bool         `json:"is_available"`
}

// MenuItemDTO — блюдо в формате API.
type MenuItemDTO struct {
	ID              int64          `json:"id"`
	CategoryID      int64          `json:"category_id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Price           domain.Money   `json:"price"`
	ImageURL        string         `json:"image_url,omitempty"`
	IsAvailable     bool           `json:"is_available"`
	IsOnStopList    bool           `json:"is_on_stop_list"`
	PreparationTime int            `json:"preparation_time"`
	Variations      []VariationDTO `json:"variations"`
}

// CategoryDTO — раздел меню в формате API.
type CategoryDTO struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Position    int           `json:"position"`
	IsActive    bool          `json:"is_active"`
	Items       []MenuItemDTO `json:"items,omitempty"`
}

// DeliveryRequestDTO — тело запроса расчёта доставки.
type DeliveryRequestDTO struct {
	Coordinates domain.Coordinates `json:"coordinates"`
	OrderValue  domain.Money       `json:"order_value"`
}

// DeliveryQuoteDTO — ответ расчёта доставки.
type DeliveryQuoteDTO struct {
	DeliveryCost  domain.Money `json:"delivery_cost"`
	DistanceKm    float64      `json:"distance_km"`
	EstimatedTime int          `json:"estimated_time"`
	IsDeliverable bool         `json:"is_deliverable"`
	FreeDelivery  bool         `json:"free_delivery"`
}

// BonusBalanceDTO — состояние бонусного счёта.
type BonusBalanceDTO struct {
	TotalBonusPoints     domain.Money `json:"total_bonus_points"`
	AvailableBonusPoints domain.Money `json:"available_bonus_points"`
	PendingBonusPoints   domain.Money `json:"pending_bonus_points"`
}

// OrderDTO — созданный заказ.
type OrderDTO struct {
	ID            int64        `json:"id"`
	OrderNumber   string       `json:"order_number"`
	Status        string       `json:"status"`
	OrderType     string       `json:"order_type"`
	PaymentMethod string       `json:"payment_method"`
	PaymentStatus string       `json:"payment_status"`
	Subtotal      domain.Money `json:"subtotal"`
	DeliveryCost  domain.Money `json:"delivery_cost"`
	BonusUsed     domain.Money `json:"bonus_used"`
	TotalAmount   domain.Money `json:"total_amount"`
}

func invalidPayload(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidPayload, fmt.Sprintf(format, args...))
}

// unwrapData достаёт data из конверта. Тело без конверта считается данными целиком.
func unwrapData(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, invalidPayload("empty body")
	}
	if body[0] != '{' {
		return body, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, invalidPayload("malformed json: %v", err)
	}
	data, hasData := fields["data"]
	_, hasSuccess := fields["success"]
	if !hasData || !hasSuccess {
		return body, nil
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, invalidPayload("malformed envelope: %v", err)
	}
	if !env.Success {
		return nil, invalidPayload("unsuccessful response: %s", env.Message)
	}
	return data, nil
}

// errorMessage извлекает текст ошибки из message или detail.
func errorMessage(body []byte) string {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(env.Message); msg != "" {
		return msg
	}
	if len(env.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(env.Detail, &detail); err == nil {
		return strings.TrimSpace(detail)
	}
	return ""
}

// decodeList разбирает либо массив, либо объект с массивом под ключом field.
func decodeList[T any](data json.RawMessage, field string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, invalidPayload("malformed %s: %v", field, err)
		}
		inner, ok := wrapped[field]
		if !ok {
			return nil, invalidPayload("missing %s", field)
		}
		data = inner
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, invalidPayload("malformed %s: %v", field, err)
	}
	return out, nil
}

func decodeObject[T any](data json.RawMessage, what string) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, invalidPayload("malformed %s: %v", what, err)
	}
	return out, nil
}

// ToDomain проверяет вариацию и переводит её в доменный тип.
func (v VariationDTO) ToDomain() (domain.Variation, error) {
	if v.ID <= 0 {
		return domain.Variation{}, invalidPayload("variation id must be positive, got %d", v.ID)
	}
	if strings.TrimSpace(v.Name) == "" {
		return domain.Variation{}, invalidPayload("variation %d has empty name", v.ID)
	}
	return domain.Variation{
		ID:              v.ID,
		Name:            v.Name,
		PriceDifference: v.PriceDifference,
		IsAvailable:     v.IsAvailable,
	}, nil
}

// ToDomain проверяет блюдо и переводит его в доменный тип.
func (m MenuItemDTO) ToDomain() (domain.MenuItem, error) {
	if m.ID <= 0 {
		return domain.MenuItem{}, invalidPayload("menu item id must be positive, got %d", m.ID)
	}
	if strings.TrimSpace(m.Name) == "" {
		return domain.MenuItem{}, invalidPayload("menu item %d has empty name", m.ID)
	}
	if m.Price.IsNegative() {
		return domain.MenuItem{}, invalidPayload("menu item %d has negative price", m.ID)
	}

	item := domain.MenuItem{
		ID:              m.ID,
		CategoryID:      m.CategoryID,
		Name:            m.Name,
		Description:     m.Description,
		Price:           m.Price,
		ImageURL:        m.ImageURL,
		IsAvailable:     m.IsAvailable,
		IsOnStopList:    m.IsOnStopList,
		PreparationTime: m.PreparationTime,
	}

	seen := make(map[string]struct{}, len(m.Variations))
	for _, raw := range m.Variations {
		v, err := raw.ToDomain()
		if err != nil {
			return domain.MenuItem{}, fmt.Errorf("menu item %d: %w", m.ID, err)
		}
		if _, dup := seen[v.Name]; dup {
			return domain.MenuItem{}, invalidPayload("menu item %d has duplicate variation %q", m.ID, v.Name)
		}
		seen[v.Name] = struct{}{}
		item.Variations = append(item.Variations, v)
	}
	return item, nil
}

// ToDomain проверяет раздел меню и переводит его в доменный тип.
func (c CategoryDTO) ToDomain() (domain.Category, error) {
	if c.ID <= 0 {
		return domain.Category{}, invalidPayload("category id must be positive, got %d", c.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, invalidPayload("category %d has empty name", c.ID)
	}

	category := domain.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Position:    c.Position,
		IsActive:    c.IsActive,
	}
	for _, raw := range c.Items {
		item, err := raw.ToDomain()
		if err != nil {
			return domain.Category{}, fmt.Errorf("category %d: %w", c.ID, err)
		}
		category.Items = append(category.Items, item)
	}
	return category, nil
}

// ToDomain проверяет ответ расчёта доставки.
func (d DeliveryQuoteDTO) ToDomain() (domain.DeliveryQuote, error) {
	if d.DistanceKm < 0 {
		return domain.DeliveryQuote{}, invalidPayload("negative distance %.3f", d.DistanceKm)
	}
	if d.DeliveryCost.IsNegative() {
		return domain.DeliveryQuote{}, invalidPayload("negative delivery cost %s", d.DeliveryCost)
	}
	if d.EstimatedTime < 0 {
		return domain.DeliveryQuote{}, invalidPayload("negative estimated time %d", d.EstimatedTime)
	}

	fee := d.DeliveryCost
	if d.FreeDelivery {
		fee = domain.Zero
	}
	return domain.DeliveryQuote{
		DistanceKm:   d.DistanceKm,
		Fee:          fee,
		ETAMinutes:   d.EstimatedTime,
		Deliverable:  d.IsDeliverable,
		FreeDelivery: d.FreeDelivery,
		Source:       domain.QuoteSourceServer,
	}, nil
}

// ToDomain проверяет состояние бонусного счёта.
func (b BonusBalanceDTO) ToDomain() (domain.BonusBalance, error) {
	if b.TotalBonusPoints.IsNegative() || b.AvailableBonusPoints.IsNegative() || b.PendingBonusPoints.IsNegative() {
		return domain.BonusBalance{}, invalidPayload("negative bonus balance")
	}
	return domain.BonusBalance{
		Total:     b.TotalBonusPoints,
		Available: b.AvailableBonusPoints,
		Pending:   b.PendingBonusPoints,
	}, nil
}

// ToDomain проверяет созданный заказ.
func (o OrderDTO) ToDomain() (domain.CreatedOrder, error) {
	if o.ID <= 0 {
		return domain.CreatedOrder{}, invalidPayload("order id must be positive, got %d", o.ID)
	}
	return domain.CreatedOrder{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		OrderType:     domain.OrderType(o.OrderType),
		PaymentMethod: domain.PaymentMethod(o.PaymentMethod),
		PaymentStatus: o.PaymentStatus,
		Subtotal:      o.Subtotal,
		DeliveryCost:  o.DeliveryCost,
		BonusUsed:     o.BonusUsed,
		TotalAmount:   o.TotalAmount,
	}, nil
}
