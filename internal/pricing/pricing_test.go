package pricing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
)

func TestFeeTiers(t *testing.T) {
	cases := []struct {
		name     string
		distance float64
		want     domain.Money
	}{
		{name: "zero", distance: 0, want: 299},
		{name: "negative", distance: -3, want: 299},
		{name: "half km", distance: 0.5, want: 299},
		{name: "boundary 1", distance: 1, want: 299},
		{name: "just above 1", distance: 1.01, want: 399},
		{name: "boundary 3", distance: 3, want: 399},
		{name: "boundary 5", distance: 5, want: 499},
		{name: "boundary 10", distance: 10, want: 699},
		{name: "above 10", distance: 10.0001, want: 899},
		{name: "far", distance: 25, want: 899},
		{name: "NaN", distance: math.NaN(), want: 299},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, pricing.Fee(tc.distance))
		})
	}
}

func TestFeeIsMonotonic(t *testing.T) {
	prev := pricing.Fee(0)
	for d := 0.0; d <= 30; d += 0.05 {
		fee := pricing.Fee(d)
		require.GreaterOrEqual(t, fee, prev, "distance %.2f", d)
		prev = fee
	}
}

func TestEstimate(t *testing.T) {
	q := pricing.NewDeliveryFeeEstimator().Estimate(2.2)

	require.Equal(t, domain.QuoteSourceEstimate, q.Source)
	require.Equal(t, domain.Money(399), q.Fee)
	require.True(t, q.Deliverable)
	require.Equal(t, 37, q.ETAMinutes)
	require.InDelta(t, 2.2, q.DistanceKm, 1e-9)
}

func TestEstimateClampsNegativeDistance(t *testing.T) {
	q := pricing.NewDeliveryFeeEstimator().Estimate(-1)
	require.Zero(t, q.DistanceKm)
	require.Equal(t, 30, q.ETAMinutes)
	require.Equal(t, domain.Money(299), q.Fee)
}

func TestHaversine(t *testing.T) {
	moscow := domain.Coordinates{Lat: 55.7558, Lon: 37.6173}
	spb := domain.Coordinates{Lat: 59.9343, Lon: 30.3351}

	require.InDelta(t, 634, pricing.HaversineKm(moscow, spb), 5)
	require.InDelta(t, 0, pricing.HaversineKm(moscow, moscow), 1e-9)
	require.InDelta(t, pricing.HaversineKm(moscow, spb), pricing.HaversineKm(spb, moscow), 1e-9)
}

func TestAllocate(t *testing.T) {
	cases := []struct {
		name                           string
		available, requested, subtotal domain.Money
		want                           domain.Money
	}{
		{name: "requested fits", available: 5000, requested: 3000, subtotal: 10000, want: 3000},
		{name: "capped by available", available: 1000, requested: 3000, subtotal: 10000, want: 1000},
		{name: "capped by subtotal", available: 5000, requested: 3000, subtotal: 2000, want: 2000},
		{name: "negative request", available: 5000, requested: -100, subtotal: 10000, want: 0},
		{name: "negative available", available: -10, requested: 100, subtotal: 10000, want: 0},
		{name: "empty cart", available: 5000, requested: 100, subtotal: 0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pricing.Allocate(tc.available, tc.requested, tc.subtotal)
			require.Equal(t, tc.want, got)
			require.False(t, got.IsNegative())
		})
	}
}

func TestAllocateBonus(t *testing.T) {
	alloc := pricing.AllocateBonus(5000, -200, 10000)
	require.Equal(t, domain.Money(5000), alloc.Available)
	require.Zero(t, alloc.Requested)
	require.Zero(t, alloc.Applied)

	require.Equal(t, domain.Money(2000), pricing.MaxRedeemable(5000, 2000))
	require.Zero(t, pricing.MaxRedeemable(-1, 2000))
}

func TestComputeTotals(t *testing.T) {
	totals := pricing.ComputeTotals(3897, 399, 1000)
	require.Equal(t, domain.Money(3296), totals.Payable)

	bonus := pricing.Allocate(5000, 99999, 3897)
	totals = pricing.ComputeTotals(3897, 0, bonus)
	require.Zero(t, totals.Payable)
}
