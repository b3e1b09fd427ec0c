package domain

import "github.com/shopspring/decimal"

// Money is a monetary amount. It behaves like decimal.Decimal everywhere
// except JSON, where it always renders with exactly two decimal places so
// trailing zeros survive the wire ("12648.60", not "12648.6").
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
