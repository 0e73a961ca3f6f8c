package domain

// QuoteSource указывает, откуда получена оценка доставки.
type QuoteSource string

const (
	// QuoteSourceServer — расчёт API доставки, считается авторитетным.
	QuoteSourceServer QuoteSource = "server"
	// QuoteSourceEstimate — локальная оценка по таблице тарифов.
	QuoteSourceEstimate QuoteSource = "estimate"
	// QuoteSourceNone — адрес не выбран или заказ на самовывоз.
	QuoteSourceNone QuoteSource = "none"
)

// DeliveryQuote — оценка стоимости и времени доставки. Не сохраняется.
type DeliveryQuote struct {
	DistanceKm   float64
	Fee          Money
	ETAMinutes   int
	Deliverable  bool
	FreeDelivery bool
	Source       QuoteSource
}

// NoDeliveryQuote возвращает пустую оценку без стоимости.
func NoDeliveryQuote() DeliveryQuote {
	return DeliveryQuote{Source: QuoteSourceNone}
}

// DeliveryQuoteRequest — параметры запроса к API доставки.
type DeliveryQuoteRequest struct {
	Coordinates Coordinates
	OrderValue  Money
}

// BonusBalance — состояние бонусного счёта клиента.
type BonusBalance struct {
	Total     Money
	Available Money
	Pending   Money
}

// BonusAllocation — запрошенное и фактически применённое списание бонусов.
type BonusAllocation struct {
	Available Money
	Requested Money
	Applied   Money
}
