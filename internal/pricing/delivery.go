// Package pricing содержит чистые функции расчёта доставки, бонусов и итогов заказа.
package pricing

import (
	"math"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// FeeTier — ступень тарифа: расстояние до UpToKm включительно стоит Fee.
type FeeTier struct {
	UpToKm float64
	Fee    domain.Money
}

// DefaultFeeTiers — тарифная сетка (0,1]→2.99 … (10,∞)→8.99. Последняя ступень открыта.
var DefaultFeeTiers = []FeeTier{
	{UpToKm: 1, Fee: 299},
	{UpToKm: 3, Fee: 399},
	{UpToKm: 5, Fee: 499},
	{UpToKm: 10, Fee: 699},
	{UpToKm: math.Inf(1), Fee: 899},
}

const (
	baseETAMinutes  = 30
	etaMinutesPerKm = 3.0
)

// DeliveryFeeEstimator — локальная оценка стоимости доставки по расстоянию.
// Используется только пока нет ответа сервера.
type DeliveryFeeEstimator struct {
	tiers []FeeTier
}

// NewDeliveryFeeEstimator создаёт оценщик с тарифной сеткой по умолчанию.
func NewDeliveryFeeEstimator() DeliveryFeeEstimator {
	return DeliveryFeeEstimator{tiers: DefaultFeeTiers}
}

// Fee возвращает стоимость доставки. distanceKm <= 0 относится к первой ступени.
func (e DeliveryFeeEstimator) Fee(distanceKm float64) domain.Money {
	tiers := e.tiers
	if len(tiers) == 0 {
		tiers = DefaultFeeTiers
	}
	if math.IsNaN(distanceKm) || distanceKm <= 0 {
		return tiers[0].Fee
	}
	for _, tier := range tiers {
		if distanceKm <= tier.UpToKm {
			return tier.Fee
		}
	}
	return tiers[len(tiers)-1].Fee
}

// Estimate строит оценку доставки по расстоянию.
func (e DeliveryFeeEstimator) Estimate(distanceKm float64) domain.DeliveryQuote {
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		distanceKm = 0
	}
	return domain.DeliveryQuote{
		DistanceKm:  distanceKm,
		Fee:         e.Fee(distanceKm),
		ETAMinutes:  baseETAMinutes + int(math.Ceil(distanceKm*etaMinutesPerKm)),
		Deliverable: true,
		Source:      domain.QuoteSourceEstimate,
	}
}

// Fee — стоимость доставки по сетке по умолчанию.
func Fee(distanceKm float64) domain.Money {
	return NewDeliveryFeeEstimator().Fee(distanceKm)
}

const earthRadiusKm = 6371.0

// HaversineKm возвращает расстояние между точками по поверхности Земли.
func HaversineKm(from, to domain.Coordinates) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(to.Lat - from.Lat)
	dLon := rad(to.Lon - from.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(from.Lat))*math.Cos(rad(to.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
