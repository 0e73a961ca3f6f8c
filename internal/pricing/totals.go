package pricing

import "github.com/vladislavdragonenkov/foodorder/internal/domain"

// Totals — разбивка суммы к оплате.
type Totals struct {
	Subtotal    domain.Money
	DeliveryFee domain.Money
	Bonus       domain.Money
	Payable     domain.Money
}

// ComputeTotals считает subtotal + fee - bonus. Результат не бывает отрицательным,
// пока bonus ограничен через Allocate.
func ComputeTotals(subtotal, deliveryFee, bonus domain.Money) Totals {
	payable := subtotal.Add(deliveryFee).Sub(bonus)
	if payable.IsNegative() {
		payable = domain.Zero
	}
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Bonus:       bonus,
		Payable:     payable,
	}
}
