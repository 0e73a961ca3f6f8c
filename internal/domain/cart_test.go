package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// helper для корзины из двух корректных позиций.
func makeCart() domain.Cart {
	c := domain.Cart{
		Lines: []domain.CartLine{
			{ID: 1, MenuItemID: 10, Name: "Борщ", Quantity: 2, UnitPrice: 1299},
			{ID: 2, MenuItemID: 11, Name: "Пицца", VariationName: "30 см", Quantity: 1, UnitPrice: 4550},
		},
	}
	c.Recalculate()
	return c
}

func TestCartValidateInvariants_Ok(t *testing.T) {
	c := makeCart()
	require.Empty(t, c.ValidateInvariants())
	require.Equal(t, domain.MoneyFromMinor(2*1299+4550), c.Total)
	require.Equal(t, 3, c.ItemCount())
}

func TestCartValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(c *domain.Cart)
		want error
	}{
		{
			name: "zero quantity",
			mut:  func(c *domain.Cart) { c.Lines[0].Quantity = 0 },
			want: domain.ErrInvalidQuantity,
		},
		{
			name: "line total drift",
			mut:  func(c *domain.Cart) { c.Lines[0].LineTotal++ },
			want: domain.ErrLineTotalMismatch,
		},
		{
			name: "cart total drift",
			mut:  func(c *domain.Cart) { c.Total-- },
			want: domain.ErrCartTotalMismatch,
		},
		{
			name: "duplicate key",
			mut: func(c *domain.Cart) {
				c.Lines[1].MenuItemID = 10
				c.Lines[1].VariationName = ""
			},
			want: domain.ErrDuplicateLine,
		},
		{
			name: "negative price",
			mut: func(c *domain.Cart) {
				c.Lines[0].UnitPrice = -1
				c.Recalculate()
			},
			want: domain.ErrInvalidPrice,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := makeCart()
			tc.mut(&c)
			errs := c.ValidateInvariants()
			require.NotEmpty(t, errs)
			found := false
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					found = true
				}
			}
			require.Truef(t, found, "expected %v in %v", tc.want, errs)
		})
	}
}

func TestCartClone_IsIndependent(t *testing.T) {
	c := makeCart()
	vid := int64(7)
	c.Lines[1].VariationID = &vid

	clone := c.Clone()
	clone.Lines[0].Quantity = 99
	*clone.Lines[1].VariationID = 8

	require.Equal(t, 2, c.Lines[0].Quantity)
	require.Equal(t, int64(7), *c.Lines[1].VariationID)
}
