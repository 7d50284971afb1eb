// Package billing holds the pure invoice calculation core: stock-aware line
// validation and subtotal/discount/tax arithmetic. It performs no I/O: stock
// levels, billing defaults and product metadata are supplied by the caller,
// so everything here is unit-testable without a database.
package billing

import "github.com/shopspring/decimal"

// Mode selects how a discount or tax value is applied
type Mode string

const (
	ModeFixed   Mode = "fixed"   // Absolute currency amount
	ModePercent Mode = "percent" // Percentage of the base amount
)

// ParseMode maps a stored/requested mode string to a Mode, defaulting to fixed
func ParseMode(s string) Mode {
	if s == string(ModePercent) {
		return ModePercent
	}
	return ModeFixed
}

// AmountSpec is a discount or tax configuration: a non-negative value plus
// the mode it is applied in
type AmountSpec struct {
	Value decimal.Decimal
	Mode  Mode
}

// applyTo resolves the spec against a base amount
func (s AmountSpec) applyTo(base decimal.Decimal) decimal.Decimal {
	if s.Mode == ModePercent {
		return base.Mul(s.Value).Div(decimal.NewFromInt(100))
	}
	return s.Value
}

// LineRequest is one candidate product line on a cart
type LineRequest struct {
	ProductID string
	Quantity  int
	UnitRate  decimal.Decimal
	GSTRate   decimal.Decimal // Informational per line; bill-level tax is configured separately
}

// StockLevel is the caller-supplied availability fact for one product
type StockLevel struct {
	ProductName string
	Available   int
}

// PricedLine is an accepted line with its derived amount
type PricedLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitRate  decimal.Decimal
	GSTRate   decimal.Decimal
	Amount    decimal.Decimal // Quantity × UnitRate
}

// Totals is the full invoice breakdown. Values carry full precision;
// two-decimal rounding is a presentation concern applied once at the edge.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
}

// skippable reports whether a line is silently dropped rather than validated.
// Inherited behavior: lines the user left blank (no product, zero quantity)
// never count and never reject the cart.
func skippable(item LineRequest) bool {
	return item.ProductID == "" || item.Quantity <= 0
}

// ValidateAndPriceLines checks each requested line against available stock and
// prices the ones that pass. The cart is all-or-nothing: a single shortfall
// rejects the whole submission with a *StockShortfallError listing every
// offending line, and a cart with nothing billable fails with ErrEmptyCart.
// Input order is preserved in both the accepted and rejected sequences.
//
// Every non-skipped ProductID must be present in stock; the caller pre-fetches
// referenced products, so a missing entry is a programming error and is
// reported as a plain error rather than a shortfall.
func ValidateAndPriceLines(items []LineRequest, stock map[string]StockLevel) ([]PricedLine, error) {
	return validateAndPrice(items, stock, false)
}

// ValidateAndPriceLinesStrict behaves like ValidateAndPriceLines but surfaces
// lines that would otherwise be silently skipped as an *InvalidLineError.
// Opt-in only: the silent-skip default is preserved for compatibility.
func ValidateAndPriceLinesStrict(items []LineRequest, stock map[string]StockLevel) ([]PricedLine, error) {
	return validateAndPrice(items, stock, true)
}

func validateAndPrice(items []LineRequest, stock map[string]StockLevel, strict bool) ([]PricedLine, error) {
	var (
		accepted   []PricedLine
		shortfalls []Shortfall
	)

	for i, item := range items {
		if skippable(item) {
			if strict {
				reason := "missing product id"
				if item.ProductID != "" {
					reason = "quantity must be positive"
				}
				return nil, &InvalidLineError{Index: i, ProductID: item.ProductID, Reason: reason}
			}
			continue
		}

		level, ok := stock[item.ProductID]
		if !ok {
			return nil, &UnknownProductError{ProductID: item.ProductID}
		}

		if item.Quantity > level.Available {
			shortfalls = append(shortfalls, Shortfall{
				ProductID:   item.ProductID,
				ProductName: level.ProductName,
				Requested:   item.Quantity,
				Available:   level.Available,
			})
			continue
		}

		accepted = append(accepted, PricedLine{
			ProductID: item.ProductID,
			Name:      level.ProductName,
			Quantity:  item.Quantity,
			UnitRate:  item.UnitRate,
			GSTRate:   item.GSTRate,
			Amount:    item.UnitRate.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	// All-or-nothing: lines that individually passed are discarded too
	if len(shortfalls) > 0 {
		return nil, &StockShortfallError{Shortfalls: shortfalls}
	}

	if len(accepted) == 0 {
		return nil, ErrEmptyCart
	}

	return accepted, nil
}

// ComputeTotals aggregates accepted lines and applies discount then tax.
// Percentage tax is computed on the post-discount taxable amount, never on the
// raw subtotal; existing invoices depend on that ordering. No rounding and no
// clamping happen here: a fixed discount larger than the subtotal legitimately
// drives the grand total negative.
func ComputeTotals(lines []PricedLine, discount, tax AmountSpec) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount)
	}

	discountAmount := discount.applyTo(subtotal)
	taxableAmount := subtotal.Sub(discountAmount)
	taxAmount := tax.applyTo(taxableAmount)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxableAmount,
		TaxAmount:      taxAmount,
		GrandTotal:     taxableAmount.Add(taxAmount),
	}
}
