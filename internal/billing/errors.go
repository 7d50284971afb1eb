package billing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCart means no billable lines survived the skip policy. Distinct
// from a stock shortfall so the caller can tell "nothing to bill" apart from
// "out of stock".
var ErrEmptyCart = errors.New("no items added to the bill: add at least one item")

// Shortfall is one rejected line: the user asked for more than is on hand
type Shortfall struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// StockShortfallError rejects an entire cart. It enumerates every offending
// line, not just the first, so the user can fix the whole submission at once.
type StockShortfallError struct {
	Shortfalls []Shortfall
}

func (e *StockShortfallError) Error() string {
	var b strings.Builder
	b.WriteString("some items are out of stock: ")
	for i, s := range e.Shortfalls {
		if i > 0 {
			b.WriteString("; ")
		}
		name := s.ProductName
		if name == "" {
			name = s.ProductID
		}
		fmt.Fprintf(&b, "%s: requested %d, available %d", name, s.Requested, s.Available)
	}
	return b.String()
}

// InvalidLineError is returned by the strict variant for a line the default
// policy would silently skip
type InvalidLineError struct {
	Index     int
	ProductID string
	Reason    string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid line item at index %d: %s", e.Index, e.Reason)
}

// UnknownProductError flags a caller-contract violation: a non-skipped line
// referenced a product absent from the supplied stock lookup
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s missing from stock lookup", e.ProductID)
}
