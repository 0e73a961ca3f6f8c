package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

func TestMoney_StringAlwaysTwoDecimals(t *testing.T) {
	cases := map[domain.Money]string{
		0:     "0.00",
		5:     "0.05",
		1299:  "12.99",
		3897:  "38.97",
		-150:  "-1.50",
		10000: "100.00",
	}
	for m, want := range cases {
		require.Equal(t, want, m.String())
	}
}

func TestMoney_ArithmeticStaysExact(t *testing.T) {
	price := domain.MoneyFromMinor(1299)
	require.Equal(t, domain.MoneyFromMinor(3897), price.MulInt(3))

	// Сто сложений 0.10 дают ровно 10.00 — без дрейфа float64.
	var total domain.Money
	for i := 0; i < 100; i++ {
		total = total.Add(domain.MoneyFromMinor(10))
	}
	require.Equal(t, "10.00", total.String())
	require.Equal(t, domain.MoneyFromMinor(990), total.Sub(domain.MoneyFromMinor(10)))
}

func TestMoneyFromFloat_BankersRounding(t *testing.T) {
	require.Equal(t, domain.MoneyFromMinor(1299), domain.MoneyFromFloat(12.99))
	require.Equal(t, domain.MoneyFromMinor(12), domain.MoneyFromFloat(0.125))
	require.Equal(t, domain.MoneyFromMinor(14), domain.MoneyFromFloat(0.135))
	require.Equal(t, domain.MoneyFromMinor(30), domain.MoneyFromFloat(0.3))
}

func TestMinMaxMoney(t *testing.T) {
	require.Equal(t, domain.MoneyFromMinor(3000), domain.MinMoney(5000, 10000, 3000))
	require.Equal(t, domain.MoneyFromMinor(10000), domain.MaxMoney(5000, 10000, 3000))
	require.Equal(t, domain.MoneyFromMinor(7), domain.SumMoney(3, 4))
}

func TestParseMoney(t *testing.T) {
	m, err := domain.ParseMoney("8.99")
	require.NoError(t, err)
	require.Equal(t, domain.MoneyFromMinor(899), m)

	_, err = domain.ParseMoney("abc")
	require.Error(t, err)
}

func TestMoney_JSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Price domain.Money `json:"price"`
	}{Price: 1299})
	require.NoError(t, err)
	require.JSONEq(t, `{"price":12.99}`, string(raw))

	var in struct {
		A domain.Money `json:"a"`
		B domain.Money `json:"b"`
		C domain.Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":2.99,"b":"3.5","c":null}`), &in))
	require.Equal(t, domain.MoneyFromMinor(299), in.A)
	require.Equal(t, domain.MoneyFromMinor(350), in.B)
	require.Equal(t, domain.Zero, in.C)

	require.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &in))
}
