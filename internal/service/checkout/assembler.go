// Package checkout собирает заказ из корзины и отправляет его в API заказов.
package checkout

import (
	"strings"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
)

// AssembleInput — всё, что нужно для сборки заказа.
type AssembleInput struct {
	Cart          domain.Cart
	OrderType     domain.OrderType
	Address       *domain.Address
	Quote         *domain.DeliveryQuote
	PaymentMethod domain.PaymentMethod
	Bonus         domain.BonusAllocation
	Notes         string
}

// Assembly — собранный запрос и итоговая сумма к оплате.
type Assembly struct {
	Request domain.OrderRequest
	Totals  pricing.Totals
	Quote   domain.DeliveryQuote
	// Cart — снимок корзины, из которого собран запрос.
	Cart domain.Cart
}

// Assemble проверяет предусловия и проецирует корзину в OrderRequest.
// Порядок проверок фиксирован: пустая корзина, адрес доставки, бонусы,
// затем тип заказа и способ оплаты.
func Assemble(in AssembleInput) (Assembly, error) {
	if in.Cart.IsEmpty() {
		return Assembly{}, domain.ErrEmptyCart
	}
	if in.OrderType == domain.OrderTypeDelivery && !in.Address.HasStreet() {
		return Assembly{}, domain.ErrMissingDeliveryAddress
	}
	applied := in.Bonus.Applied
	if applied.IsNegative() || applied > in.Cart.Total {
		return Assembly{}, domain.ErrInvalidBonusAmount
	}
	if !in.OrderType.Valid() {
		return Assembly{}, domain.ErrInvalidOrderType
	}
	if !in.PaymentMethod.Valid() {
		return Assembly{}, domain.ErrInvalidPaymentMethod
	}

	quote := domain.NoDeliveryQuote()
	if in.OrderType == domain.OrderTypeDelivery && in.Quote != nil {
		quote = *in.Quote
		if quote.Source == domain.QuoteSourceServer && !quote.Deliverable {
			return Assembly{}, domain.ErrNotDeliverable
		}
	}

	req := domain.OrderRequest{
		OrderType:     in.OrderType,
		Items:         projectItems(in.Cart.Lines),
		Notes:         strings.TrimSpace(in.Notes),
		PaymentMethod: in.PaymentMethod,
	}
	if in.OrderType == domain.OrderTypeDelivery {
		addr := *in.Address
		req.DeliveryAddress = &addr
	}
	if applied.IsPositive() {
		bonus := applied
		req.BonusToUse = &bonus
	}

	return Assembly{
		Request: req,
		Totals:  pricing.ComputeTotals(in.Cart.Total, quote.Fee, applied),
		Quote:   quote,
		Cart:    in.Cart.Clone(),
	}, nil
}

func projectItems(lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := domain.OrderItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			Notes:      line.Notes,
		}
		if line.VariationID != nil {
			id := *line.VariationID
			item.VariationID = &id
		}
		items = append(items, item)
	}
	return items
}
