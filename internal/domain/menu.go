package domain

// Variation — платная опция блюда (например, размер).
type Variation struct {
	ID              int64
	Name            string
	PriceDifference Money
	IsAvailable     bool
}

// MenuItem — позиция каталога.
type MenuItem struct {
	ID              int64
	CategoryID      int64
	Name            string
	Description     string
	Price           Money
	ImageURL        string
	IsAvailable     bool
	IsOnStopList    bool
	PreparationTime int
	Variations      []Variation
}

// Category — раздел меню.
type Category struct {
	ID          int64
	Name        string
	Description string
	Position    int
	IsActive    bool
	Items       []MenuItem
}

// MenuFilter задаёт параметры выборки меню.
type MenuFilter struct {
	CategoryID  int64
	OnlyInStock bool
	Search      string
}

// Orderable сообщает, можно ли сейчас заказать блюдо.
func (m MenuItem) Orderable() bool {
	return m.IsAvailable && !m.IsOnStopList
}

// FindVariation ищет вариацию по имени.
func (m MenuItem) FindVariation(name string) (Variation, bool) {
	for _, v := range m.Variations {
		if v.Name == name {
			return v, true
		}
	}
	return Variation{}, false
}

// UnitPrice возвращает цену единицы с учётом вариации: base + priceDifference.
// Пустое имя вариации означает базовую цену.
func (m MenuItem) UnitPrice(variationName string) (Money, *Variation, error) {
	if !m.Orderable() {
		return Zero, nil, ErrItemUnavailable
	}
	if variationName == "" {
		return m.Price, nil, nil
	}
	v, ok := m.FindVariation(variationName)
	if !ok {
		return Zero, nil, ErrVariationNotFound
	}
	if !v.IsAvailable {
		return Zero, nil, ErrItemUnavailable
	}
	price := m.Price.Add(v.PriceDifference)
	if price.IsNegative() {
		return Zero, nil, ErrInvalidPrice
	}
	return price, &v, nil
}
