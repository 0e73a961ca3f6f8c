// Package grpcsvc публикует корзину и оформление заказа как gRPC-сервис
// foodorder.v1.CartService поверх JSON-кодека.
package grpcsvc

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/service/checkout"
)

// CartOwner — операции над корзиной, которые нужны сервису.
type CartOwner interface {
	AddItem(ctx context.Context, candidate domain.LineCandidate) (domain.CartLine, error)
	AddMenuItem(ctx context.Context, item domain.MenuItem, variationName string, quantity int, notes string) (domain.CartLine, error)
	UpdateQuantity(ctx context.Context, lineID int64, quantity int) bool
	RemoveItem(ctx context.Context, lineID int64) bool
	Clear(ctx context.Context)
	Snapshot() domain.Cart
}

// MenuLookup ищет блюдо в меню ресторана.
type MenuLookup interface {
	MenuItem(ctx context.Context, id int64) (domain.MenuItem, error)
}

// CartServiceServer — серверная сторона foodorder.v1.CartService.
type CartServiceServer interface {
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	AddItem(context.Context, *AddItemRequest) (*AddItemResponse, error)
	UpdateQuantity(context.Context, *UpdateQuantityRequest) (*CartResponse, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*CartResponse, error)
	ClearCart(context.Context, *ClearCartRequest) (*CartResponse, error)
	QuoteDelivery(context.Context, *QuoteDeliveryRequest) (*QuoteDeliveryResponse, error)
	AllocateBonus(context.Context, *AllocateBonusRequest) (*AllocateBonusResponse, error)
	PreviewOrder(context.Context, *CheckoutRequest) (*PreviewOrderResponse, error)
	SubmitOrder(context.Context, *CheckoutRequest) (*SubmitOrderResponse, error)
}

// CartService реализует CartServiceServer.
type CartService struct {
	cart     CartOwner
	checkout *checkout.Service
	menu     MenuLookup
	logger   *log.Entry
}

// NewCartService создаёт сервис. menu может быть nil: тогда AddItem принимает
// только позиции с явной ценой.
func NewCartService(cart CartOwner, checkoutSvc *checkout.Service, menu MenuLookup, logger *log.Entry) *CartService {
	if logger == nil {
		logger = log.WithField("component", "grpc-cart-service")
	}
	return &CartService{
		cart:     cart,
		checkout: checkoutSvc,
		menu:     menu,
		logger:   logger,
	}
}

// GetCart возвращает текущую корзину.
func (s *CartService) GetCart(_ context.Context, _ *GetCartRequest) (*CartResponse, error) {
	resp := toCartResponse(s.cart.Snapshot())
	return &resp, nil
}

// AddItem добавляет позицию или увеличивает количество уже имеющейся.
func (s *CartService) AddItem(ctx context.Context, req *AddItemRequest) (*AddItemResponse, error) {
	if req.MenuItemID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "menu_item_id must be positive")
	}
	if req.Quantity <= 0 {
		return nil, toStatus(domain.ErrInvalidQuantity)
	}

	var (
		line domain.CartLine
		err  error
	)
	if req.UnitPrice != nil {
		line, err = s.cart.AddItem(ctx, domain.LineCandidate{
			MenuItemID:    req.MenuItemID,
			Name:          req.Name,
			VariationName: req.VariationName,
			VariationID:   req.VariationID,
			Quantity:      req.Quantity,
			UnitPrice:     *req.UnitPrice,
			Notes:         req.Notes,
		})
	} else {
		if s.menu == nil {
			return nil, status.Error(codes.InvalidArgument, "unit_price is required when menu lookup is disabled")
		}
		item, lookupErr := s.menu.MenuItem(ctx, req.MenuItemID)
		if lookupErr != nil {
			s.logger.WithError(lookupErr).WithField("menu_item_id", req.MenuItemID).Warn("menu lookup failed")
			return nil, toStatus(lookupErr)
		}
		line, err = s.cart.AddMenuItem(ctx, item, req.VariationName, req.Quantity, req.Notes)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	return &AddItemResponse{Line: line, CartResponse: toCartResponse(s.cart.Snapshot())}, nil
}

// UpdateQuantity меняет количество; значение 0 и меньше удаляет позицию.
// Отсутствующая позиция не ошибка: возвращается корзина без изменений.
func (s *CartService) UpdateQuantity(ctx context.Context, req *UpdateQuantityRequest) (*CartResponse, error) {
	if !s.cart.UpdateQuantity(ctx, req.LineID, req.Quantity) {
		s.logger.WithField("line_id", req.LineID).Debug("update of absent cart line ignored")
	}
	resp := toCartResponse(s.cart.Snapshot())
	return &resp, nil
}

// RemoveItem удаляет позицию. Отсутствующая позиция не ошибка.
func (s *CartService) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*CartResponse, error) {
	if !s.cart.RemoveItem(ctx, req.LineID) {
		s.logger.WithField("line_id", req.LineID).Debug("removal of absent cart line ignored")
	}
	resp := toCartResponse(s.cart.Snapshot())
	return &resp, nil
}

// ClearCart очищает корзину.
func (s *CartService) ClearCart(ctx context.Context, _ *ClearCartRequest) (*CartResponse, error) {
	s.cart.Clear(ctx)
	resp := toCartResponse(s.cart.Snapshot())
	return &resp, nil
}

// QuoteDelivery оценивает доставку для текущей суммы корзины.
func (s *CartService) QuoteDelivery(ctx context.Context, req *QuoteDeliveryRequest) (*QuoteDeliveryResponse, error) {
	subtotal := s.cart.Snapshot().Total
	quote, err := s.checkout.Quote(ctx, req.Coordinates, subtotal)
	if err != nil {
		return nil, toStatus(err)
	}
	return &QuoteDeliveryResponse{Quote: toQuote(quote), Subtotal: subtotal}, nil
}

// AllocateBonus ограничивает списание бонусов балансом и суммой корзины.
func (s *CartService) AllocateBonus(ctx context.Context, req *AllocateBonusRequest) (*AllocateBonusResponse, error) {
	if req.Requested.IsNegative() {
		return nil, toStatus(domain.ErrInvalidBonusAmount)
	}
	allocation, balance := s.checkout.AllocateBonus(ctx, req.Requested, s.cart.Snapshot().Total)
	return &AllocateBonusResponse{
		Requested: allocation.Requested,
		Applied:   allocation.Applied,
		Available: allocation.Available,
		Total:     balance.Total,
		Pending:   balance.Pending,
	}, nil
}

// PreviewOrder собирает заказ без отправки.
func (s *CartService) PreviewOrder(ctx context.Context, req *CheckoutRequest) (*PreviewOrderResponse, error) {
	assembly, err := s.checkout.Preview(ctx, req.toCheckout())
	if err != nil {
		return nil, toStatus(err)
	}
	return &PreviewOrderResponse{
		Order:  assembly.Request,
		Totals: toTotals(assembly.Totals),
		Quote:  toQuote(assembly.Quote),
	}, nil
}

// SubmitOrder отправляет заказ. После успеха корзина пуста.
func (s *CartService) SubmitOrder(ctx context.Context, req *CheckoutRequest) (*SubmitOrderResponse, error) {
	created, assembly, err := s.checkout.PlaceOrder(ctx, req.toCheckout())
	if err != nil {
		s.logger.WithError(err).WithField("order_type", req.OrderType).Warn("order submission failed")
		return nil, toStatus(err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"total":        created.TotalAmount.String(),
	}).Info("order submitted")

	return &SubmitOrderResponse{
		OrderID:       created.ID,
		OrderNumber:   created.OrderNumber,
		Status:        created.Status,
		PaymentStatus: created.PaymentStatus,
		PaymentMethod: created.PaymentMethod,
		TotalAmount:   created.TotalAmount,
		Totals:        toTotals(assembly.Totals),
	}, nil
}

var _ CartServiceServer = (*CartService)(nil)
