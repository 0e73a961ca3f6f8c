package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyScale — количество знаков после запятой во внешнем представлении.
const moneyScale = 2

// Money хранит денежную сумму в минимальных единицах (копейках).
// Вся арифметика выполняется над int64, десятичная форма появляется только на границе.
type Money int64

// Zero — нулевая сумма.
const Zero Money = 0

// MoneyFromMinor создаёт сумму из минимальных единиц.
func MoneyFromMinor(minor int64) Money {
	return Money(minor)
}

// MoneyFromDecimal переводит десятичное значение в Money с банковским округлением.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(moneyScale).RoundBank(0).IntPart())
}

// MoneyFromFloat переводит float64 из внешних API в Money (half-to-even).
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// ParseMoney разбирает строку вида "12.99".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

// Minor возвращает сумму в минимальных единицах.
func (m Money) Minor() int64 { return int64(m) }

// Decimal возвращает десятичное представление суммы.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -moneyScale)
}

func (m Money) Add(other Money) Money { return m + other }

func (m Money) Sub(other Money) Money { return m - other }

// MulInt умножает цену на целое количество.
func (m Money) MulInt(qty int) Money { return m * Money(qty) }

func (m Money) IsZero() bool { return m == 0 }

func (m Money) IsNegative() bool { return m < 0 }

func (m Money) IsPositive() bool { return m > 0 }

// MinMoney возвращает наименьшую из сумм.
func MinMoney(first Money, rest ...Money) Money {
	out := first
	for _, v := range rest {
		if v < out {
			out = v
		}
	}
	return out
}

// MaxMoney возвращает наибольшую из сумм.
func MaxMoney(first Money, rest ...Money) Money {
	out := first
	for _, v := range rest {
		if v > out {
			out = v
		}
	}
	return out
}

// SumMoney складывает суммы.
func SumMoney(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}

// String форматирует сумму ровно с двумя знаками после запятой.
func (m Money) String() string {
	return m.Decimal().StringFixed(moneyScale)
}

// MarshalJSON пишет сумму числом с двумя знаками: 12.99.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON принимает как число, так и строку.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	data = bytes.Trim(data, `"`)
	parsed, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
