package pricing

import "github.com/vladislavdragonenkov/foodorder/internal/domain"

// Allocate возвращает сумму бонусов к списанию:
// min(max(requested,0), available, subtotal), никогда не меньше нуля.
func Allocate(available, requested, subtotal domain.Money) domain.Money {
	return domain.MaxMoney(domain.Zero, domain.MinMoney(
		domain.MaxMoney(requested, domain.Zero),
		available,
		subtotal,
	))
}

// MaxRedeemable — верхняя граница списания для подсказки в интерфейсе.
func MaxRedeemable(available, subtotal domain.Money) domain.Money {
	return domain.MaxMoney(domain.Zero, domain.MinMoney(available, subtotal))
}

// AllocateBonus строит BonusAllocation. Сервер остаётся источником истины:
// клиентский расчёт только подсказка.
func AllocateBonus(available, requested, subtotal domain.Money) domain.BonusAllocation {
	if available.IsNegative() {
		available = domain.Zero
	}
	if requested.IsNegative() {
		requested = domain.Zero
	}
	return domain.BonusAllocation{
		Available: available,
		Requested: requested,
		Applied:   Allocate(available, requested, subtotal),
	}
}
