package domain

// CartLine — одна позиция корзины: уникальная пара (блюдо, вариация) и её количество.
type CartLine struct {
	// ID генерируется при добавлении позиции и стабилен до её удаления.
	ID            int64  `json:"id"`
	MenuItemID    int64  `json:"menu_item_id"`
	Name          string `json:"menu_item_name"`
	VariationName string `json:"variation_name,omitempty"`
	// VariationID заполняется, если позиция добавлена из каталога.
	VariationID *int64 `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	LineTotal   Money  `json:"total_price"`
	Notes       string `json:"notes,omitempty"`
}

// Key возвращает ключ слияния позиции.
func (l CartLine) Key() LineKey {
	return LineKey{MenuItemID: l.MenuItemID, VariationName: l.VariationName}
}

// Recalculate пересчитывает сумму позиции.
func (l *CartLine) Recalculate() {
	l.LineTotal = l.UnitPrice.MulInt(l.Quantity)
}

// LineKey идентифицирует логически одинаковые позиции.
type LineKey struct {
	MenuItemID    int64
	VariationName string
}

// Cart — упорядоченный список позиций и общая сумма.
type Cart struct {
	Lines []CartLine `json:"items"`
	Total Money      `json:"total"`
}

// IsEmpty сообщает, есть ли в корзине позиции.
func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// ItemCount возвращает суммарное количество единиц во всех позициях.
func (c Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// Clone возвращает независимую копию корзины.
func (c Cart) Clone() Cart {
	out := Cart{Total: c.Total, Lines: make([]CartLine, len(c.Lines))}
	copy(out.Lines, c.Lines)
	for i := range out.Lines {
		if v := out.Lines[i].VariationID; v != nil {
			id := *v
			out.Lines[i].VariationID = &id
		}
	}
	return out
}

// Recalculate пересчитывает суммы всех позиций и итог корзины.
func (c *Cart) Recalculate() {
	var total Money
	for i := range c.Lines {
		c.Lines[i].Recalculate()
		total = total.Add(c.Lines[i].LineTotal)
	}
	c.Total = total
}

// ValidateInvariants проверяет инварианты корзины и возвращает список замечаний.
func (c Cart) ValidateInvariants() []error {
	var errs []error

	seen := make(map[LineKey]struct{}, len(c.Lines))
	ids := make(map[int64]struct{}, len(c.Lines))
	var calc Money
	for _, line := range c.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ErrInvalidPrice)
		}
		if line.LineTotal != line.UnitPrice.MulInt(line.Quantity) {
			errs = append(errs, ErrLineTotalMismatch)
		}
		if _, dup := seen[line.Key()]; dup {
			errs = append(errs, ErrDuplicateLine)
		}
		seen[line.Key()] = struct{}{}
		if _, dup := ids[line.ID]; dup {
			errs = append(errs, ErrDuplicateLine)
		}
		ids[line.ID] = struct{}{}
		calc = calc.Add(line.LineTotal)
	}
	if calc != c.Total {
		errs = append(errs, ErrCartTotalMismatch)
	}

	return errs
}

// LineCandidate описывает позицию, которую хотят добавить в корзину.
type LineCandidate struct {
	MenuItemID    int64
	Name          string
	VariationName string
	VariationID   *int64
	Quantity      int
	UnitPrice     Money
	Notes         string
}
