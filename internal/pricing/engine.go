package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pharmakit/pos-terminal/internal/cart"
)

var oneHundred = decimal.NewFromInt(100)

// Line is the derived figure for a single cart entry.
type Line struct {
	Item  cart.LineItem
	Total decimal.Decimal // quantity x unit price, tax-exclusive
	Tax   decimal.Decimal
}

// Snapshot is a pure function of the cart contents and the discount input.
// It is recomputed after every mutation and never stored apart from the cart
// it was derived from. Figures are unrounded; rounding happens only when a
// figure is rendered.
type Snapshot struct {
	Lines      []Line
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	Discount   decimal.Decimal
	GrandTotal decimal.Decimal
}

// Compute derives totals for the given items and discount. The grand total
// is deliberately not clamped: a discount larger than the bill is allowed to
// drive it negative, matching the till's permissive behaviour.
func Compute(items []cart.LineItem, discount decimal.Decimal) Snapshot {
	snapshot := Snapshot{
		Lines:    make([]Line, 0, len(items)),
		Subtotal: decimal.Zero,
		TaxTotal: decimal.Zero,
		Discount: discount,
	}

	for _, item := range items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lineTax := lineTotal.Mul(item.TaxPercent).Div(oneHundred)

		snapshot.Lines = append(snapshot.Lines, Line{
			Item:  item,
			Total: lineTotal,
			Tax:   lineTax,
		})
		snapshot.Subtotal = snapshot.Subtotal.Add(lineTotal)
		snapshot.TaxTotal = snapshot.TaxTotal.Add(lineTax)
	}

	snapshot.GrandTotal = snapshot.Subtotal.Add(snapshot.TaxTotal).Sub(discount)
	return snapshot
}

// ParseDiscount coerces the raw discount field to a non-negative amount.
// Blank, unparseable, and negative input all read as zero; a bad discount
// must never block the sale.
func ParseDiscount(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}
