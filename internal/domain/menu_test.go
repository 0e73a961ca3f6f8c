package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

func pizza() domain.MenuItem {
	return domain.MenuItem{
		ID:          5,
		Name:        "Маргарита",
		Price:       1299,
		IsAvailable: true,
		Variations: []domain.Variation{
			{ID: 51, Name: "30 см", PriceDifference: 300, IsAvailable: true},
			{ID: 52, Name: "40 см", PriceDifference: 700, IsAvailable: false},
		},
	}
}

func TestMenuItemUnitPrice(t *testing.T) {
	item := pizza()

	price, variation, err := item.UnitPrice("")
	require.NoError(t, err)
	require.Nil(t, variation)
	require.Equal(t, domain.MoneyFromMinor(1299), price)

	price, variation, err = item.UnitPrice("30 см")
	require.NoError(t, err)
	require.NotNil(t, variation)
	require.Equal(t, int64(51), variation.ID)
	require.Equal(t, domain.MoneyFromMinor(1599), price)
}

func TestMenuItemUnitPrice_Unavailable(t *testing.T) {
	item := pizza()

	_, _, err := item.UnitPrice("40 см")
	require.ErrorIs(t, err, domain.ErrItemUnavailable)

	_, _, err = item.UnitPrice("50 см")
	require.ErrorIs(t, err, domain.ErrVariationNotFound)

	item.IsOnStopList = true
	_, _, err = item.UnitPrice("")
	require.ErrorIs(t, err, domain.ErrItemUnavailable)
}
