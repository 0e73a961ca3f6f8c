package checkout

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
)

// CartReader отдаёт текущий снимок корзины.
type CartReader interface {
	Snapshot() domain.Cart
}

// QuoteResolver возвращает оценку доставки для координат и суммы заказа.
type QuoteResolver interface {
	Resolve(ctx context.Context, coords domain.Coordinates, subtotal domain.Money) (domain.DeliveryQuote, error)
}

// Checkout — выбор пользователя на экране оформления.
type Checkout struct {
	OrderType      domain.OrderType
	Address        *domain.Address
	PaymentMethod  domain.PaymentMethod
	RequestedBonus domain.Money
	Notes          string
}

// Service связывает корзину, расчёт доставки, бонусы и отправку заказа.
type Service struct {
	cart      CartReader
	quotes    QuoteResolver
	bonuses   domain.BonusAPI
	submitter *Submitter
	notifier  domain.Notifier
	logger    *log.Entry
}

// NewService создаёт сервис оформления. quotes, bonuses и notifier могут быть nil.
func NewService(cart CartReader, quotes QuoteResolver, bonuses domain.BonusAPI, submitter *Submitter, notifier domain.Notifier, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "checkout-service")
	}
	return &Service{
		cart:      cart,
		quotes:    quotes,
		bonuses:   bonuses,
		submitter: submitter,
		notifier:  notifier,
		logger:    logger,
	}
}

// Quote считает доставку для адреса. Для неизвестных координат доставка не оценивается.
func (s *Service) Quote(ctx context.Context, coords domain.Coordinates, subtotal domain.Money) (domain.DeliveryQuote, error) {
	if s.quotes == nil || !coords.Known() {
		return domain.NoDeliveryQuote(), nil
	}
	return s.quotes.Resolve(ctx, coords, subtotal)
}

// AllocateBonus запрашивает баланс и ограничивает списание.
// Недоступный API бонусов даёт нулевой доступный остаток.
func (s *Service) AllocateBonus(ctx context.Context, requested, subtotal domain.Money) (domain.BonusAllocation, domain.BonusBalance) {
	if s.bonuses == nil || !requested.IsPositive() {
		return pricing.AllocateBonus(domain.Zero, requested, subtotal), domain.BonusBalance{}
	}

	balance, err := s.bonuses.Bonuses(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("bonus balance unavailable, bonus not applied")
		return pricing.AllocateBonus(domain.Zero, requested, subtotal), domain.BonusBalance{}
	}
	return pricing.AllocateBonus(balance.Available, requested, subtotal), balance
}

// Preview собирает заказ без отправки.
func (s *Service) Preview(ctx context.Context, in Checkout) (Assembly, error) {
	snapshot := s.cart.Snapshot()

	input := AssembleInput{
		Cart:          snapshot,
		OrderType:     in.OrderType,
		Address:       in.Address,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
	}

	// Внешние вызовы не нужны, если заказ всё равно не пройдёт первые проверки.
	if _, err := Assemble(input); errors.Is(err, domain.ErrEmptyCart) || errors.Is(err, domain.ErrMissingDeliveryAddress) {
		s.alert(ctx, err)
		return Assembly{}, err
	}

	if in.OrderType == domain.OrderTypeDelivery && in.Address != nil {
		quote, err := s.Quote(ctx, in.Address.Coordinates, snapshot.Total)
		if err != nil {
			return Assembly{}, err
		}
		input.Quote = &quote
	}

	input.Bonus, _ = s.AllocateBonus(ctx, in.RequestedBonus, snapshot.Total)

	assembly, err := Assemble(input)
	if err != nil {
		s.alert(ctx, err)
		return Assembly{}, err
	}
	return assembly, nil
}

// PlaceOrder собирает и отправляет заказ.
func (s *Service) PlaceOrder(ctx context.Context, in Checkout) (domain.CreatedOrder, Assembly, error) {
	assembly, err := s.Preview(ctx, in)
	if err != nil {
		return domain.CreatedOrder{}, Assembly{}, err
	}
	if s.submitter == nil {
		return domain.CreatedOrder{}, assembly, errors.New("order submitter is not configured")
	}

	created, err := s.submitter.Submit(ctx, assembly)
	if err != nil {
		s.alert(ctx, err)
		return domain.CreatedOrder{}, assembly, err
	}
	return created, assembly, nil
}

func (s *Service) alert(ctx context.Context, err error) {
	if s.notifier == nil || errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrQuoteDiscarded) {
		return
	}
	if alertErr := s.notifier.Alert(ctx, domain.UserMessage(err)); alertErr != nil {
		s.logger.WithError(alertErr).Warn("failed to show alert")
	}
}
