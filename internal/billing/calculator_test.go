package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func line(id string, qty int, rate string) LineRequest {
	return LineRequest{ProductID: id, Quantity: qty, UnitRate: dec(rate)}
}

func TestValidateAndPriceLines(t *testing.T) {
	stock := map[string]StockLevel{
		"P1": {ProductName: "Sugar 1kg", Available: 10},
		"P2": {ProductName: "Rice 5kg", Available: 0},
		"P3": {ProductName: "Tea 250g", Available: 3},
	}

	tests := []struct {
		name        string
		items       []LineRequest
		wantLines   int
		wantErr     error
		wantShort   []Shortfall
		wantAmounts []string
	}{
		{
			name:        "single in-stock line is priced",
			items:       []LineRequest{line("P1", 2, "100")},
			wantLines:   1,
			wantAmounts: []string{"200"},
		},
		{
			name:      "shortfall rejects the whole cart",
			items:     []LineRequest{line("P3", 5, "50")},
			wantShort: []Shortfall{{ProductID: "P3", ProductName: "Tea 250g", Requested: 5, Available: 3}},
		},
		{
			name:  "passing lines are discarded alongside failing ones",
			items: []LineRequest{line("P1", 1, "100"), line("P2", 1, "50")},
			wantShort: []Shortfall{
				{ProductID: "P2", ProductName: "Rice 5kg", Requested: 1, Available: 0},
			},
		},
		{
			name: "multiple shortfalls are all reported in input order",
			items: []LineRequest{
				line("P2", 2, "50"),
				line("P1", 1, "100"),
				line("P3", 4, "20"),
			},
			wantShort: []Shortfall{
				{ProductID: "P2", ProductName: "Rice 5kg", Requested: 2, Available: 0},
				{ProductID: "P3", ProductName: "Tea 250g", Requested: 4, Available: 3},
			},
		},
		{
			name:    "empty product id is skipped leaving an empty cart",
			items:   []LineRequest{line("", 1, "10")},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "zero and negative quantities are skipped",
			items:   []LineRequest{line("P1", 0, "10"), line("P1", -3, "10")},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "empty cart",
			items:   nil,
			wantErr: ErrEmptyCart,
		},
		{
			name:        "skipped noise does not block valid lines",
			items:       []LineRequest{line("", 1, "10"), line("P1", 3, "25.50"), line("P3", 0, "99")},
			wantLines:   1,
			wantAmounts: []string{"76.5"},
		},
		{
			name:        "requesting exactly the available quantity passes",
			items:       []LineRequest{line("P3", 3, "10")},
			wantLines:   1,
			wantAmounts: []string{"30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := ValidateAndPriceLines(tt.items, stock)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, lines)
				return
			}

			if tt.wantShort != nil {
				var shortErr *StockShortfallError
				require.ErrorAs(t, err, &shortErr)
				assert.Equal(t, tt.wantShort, shortErr.Shortfalls)
				assert.Nil(t, lines, "no lines may be priced when any line falls short")
				return
			}

			require.NoError(t, err)
			require.Len(t, lines, tt.wantLines)
			for i, want := range tt.wantAmounts {
				assert.True(t, lines[i].Amount.Equal(dec(want)),
					"line %d amount = %s, want %s", i, lines[i].Amount, want)
			}
		})
	}
}

func TestValidateAndPriceLinesUnknownProduct(t *testing.T) {
	_, err := ValidateAndPriceLines([]LineRequest{line("ghost", 1, "10")}, map[string]StockLevel{})

	var unknown *UnknownProductError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.ProductID)
}

func TestValidateAndPriceLinesStrict(t *testing.T) {
	stock := map[string]StockLevel{"P1": {ProductName: "Sugar 1kg", Available: 10}}

	t.Run("missing product id fails instead of skipping", func(t *testing.T) {
		_, err := ValidateAndPriceLinesStrict([]LineRequest{line("", 1, "10")}, stock)

		var invalid *InvalidLineError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 0, invalid.Index)
	})

	t.Run("non-positive quantity fails with its index", func(t *testing.T) {
		_, err := ValidateAndPriceLinesStrict([]LineRequest{line("P1", 2, "10"), line("P1", 0, "10")}, stock)

		var invalid *InvalidLineError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 1, invalid.Index)
	})

	t.Run("clean cart behaves like the default variant", func(t *testing.T) {
		lines, err := ValidateAndPriceLinesStrict([]LineRequest{line("P1", 2, "10")}, stock)
		require.NoError(t, err)
		assert.Len(t, lines, 1)
	})
}

func TestStockShortfallErrorListsEveryLine(t *testing.T) {
	err := &StockShortfallError{Shortfalls: []Shortfall{
		{ProductID: "P1", ProductName: "Sugar 1kg", Requested: 5, Available: 2},
		{ProductID: "P2", ProductName: "Rice 5kg", Requested: 1, Available: 0},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "Sugar 1kg: requested 5, available 2")
	assert.Contains(t, msg, "Rice 5kg: requested 1, available 0")
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		lines    []PricedLine
		discount AmountSpec
		tax      AmountSpec
		want     Totals
	}{
		{
			name: "percent discount then percent tax on taxable amount",
			lines: []PricedLine{
				{Amount: dec("200")},
			},
			discount: AmountSpec{Value: dec("10"), Mode: ModePercent},
			tax:      AmountSpec{Value: dec("18"), Mode: ModePercent},
			want: Totals{
				Subtotal:       dec("200"),
				DiscountAmount: dec("20"),
				TaxableAmount:  dec("180"),
				TaxAmount:      dec("32.4"),
				GrandTotal:     dec("212.4"),
			},
		},
		{
			name:     "fixed discount with zero tax",
			lines:    []PricedLine{{Amount: dec("100")}},
			discount: AmountSpec{Value: dec("50"), Mode: ModeFixed},
			tax:      AmountSpec{Value: dec("0"), Mode: ModeFixed},
			want: Totals{
				Subtotal:       dec("100"),
				DiscountAmount: dec("50"),
				TaxableAmount:  dec("50"),
				TaxAmount:      dec("0"),
				GrandTotal:     dec("50"),
			},
		},
		{
			name:     "fixed discount and fixed tax add linearly",
			lines:    []PricedLine{{Amount: dec("500")}, {Amount: dec("250")}},
			discount: AmountSpec{Value: dec("100"), Mode: ModeFixed},
			tax:      AmountSpec{Value: dec("40"), Mode: ModeFixed},
			want: Totals{
				Subtotal:       dec("750"),
				DiscountAmount: dec("100"),
				TaxableAmount:  dec("650"),
				TaxAmount:      dec("40"),
				GrandTotal:     dec("690"),
			},
		},
		{
			name:     "percent tax applies after fixed discount",
			lines:    []PricedLine{{Amount: dec("1000")}},
			discount: AmountSpec{Value: dec("200"), Mode: ModeFixed},
			tax:      AmountSpec{Value: dec("10"), Mode: ModePercent},
			want: Totals{
				Subtotal:       dec("1000"),
				DiscountAmount: dec("200"),
				TaxableAmount:  dec("800"),
				TaxAmount:      dec("80"), // 10% of 800, not of 1000
				GrandTotal:     dec("880"),
			},
		},
		{
			name:     "fixed discount above the subtotal goes negative unclamped",
			lines:    []PricedLine{{Amount: dec("100")}},
			discount: AmountSpec{Value: dec("150"), Mode: ModeFixed},
			tax:      AmountSpec{Value: dec("0"), Mode: ModeFixed},
			want: Totals{
				Subtotal:       dec("100"),
				DiscountAmount: dec("150"),
				TaxableAmount:  dec("-50"),
				TaxAmount:      dec("0"),
				GrandTotal:     dec("-50"),
			},
		},
		{
			name:     "fractional rates keep full precision",
			lines:    []PricedLine{{Amount: dec("33.33")}},
			discount: AmountSpec{Value: dec("0"), Mode: ModeFixed},
			tax:      AmountSpec{Value: dec("18"), Mode: ModePercent},
			want: Totals{
				Subtotal:       dec("33.33"),
				DiscountAmount: dec("0"),
				TaxableAmount:  dec("33.33"),
				TaxAmount:      dec("5.9994"),
				GrandTotal:     dec("39.3294"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.lines, tt.discount, tt.tax)

			assert.True(t, got.Subtotal.Equal(tt.want.Subtotal), "subtotal = %s", got.Subtotal)
			assert.True(t, got.DiscountAmount.Equal(tt.want.DiscountAmount), "discountAmount = %s", got.DiscountAmount)
			assert.True(t, got.TaxableAmount.Equal(tt.want.TaxableAmount), "taxableAmount = %s", got.TaxableAmount)
			assert.True(t, got.TaxAmount.Equal(tt.want.TaxAmount), "taxAmount = %s", got.TaxAmount)
			assert.True(t, got.GrandTotal.Equal(tt.want.GrandTotal), "grandTotal = %s", got.GrandTotal)

			// grandTotal = subtotal - discountAmount + taxAmount, for every mode combination
			additive := got.Subtotal.Sub(got.DiscountAmount).Add(got.TaxAmount)
			assert.True(t, got.GrandTotal.Equal(additive), "grand total must equal subtotal - discount + tax")
		})
	}
}

func TestComputeTotalsDeterministic(t *testing.T) {
	lines := []PricedLine{{Amount: dec("123.4567")}, {Amount: dec("0.0001")}}
	discount := AmountSpec{Value: dec("7.77"), Mode: ModePercent}
	tax := AmountSpec{Value: dec("18"), Mode: ModePercent}

	first := ComputeTotals(lines, discount, tax)
	second := ComputeTotals(lines, discount, tax)

	assert.Equal(t, first.GrandTotal.String(), second.GrandTotal.String())
	assert.Equal(t, first, second)
}

func TestEndToEndCartToTotals(t *testing.T) {
	// Scenario: two lines, 10% discount, 18% GST-style tax
	stock := map[string]StockLevel{
		"P1": {ProductName: "Sugar 1kg", Available: 10},
	}
	lines, err := ValidateAndPriceLines([]LineRequest{
		{ProductID: "P1", Quantity: 2, UnitRate: dec("100"), GSTRate: dec("18")},
	}, stock)
	require.NoError(t, err)

	totals := ComputeTotals(lines,
		AmountSpec{Value: dec("10"), Mode: ModePercent},
		AmountSpec{Value: dec("18"), Mode: ModePercent},
	)

	assert.Equal(t, "212.40", totals.GrandTotal.StringFixed(2))
	assert.Equal(t, "32.40", totals.TaxAmount.StringFixed(2))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModePercent, ParseMode("percent"))
	assert.Equal(t, ModeFixed, ParseMode("fixed"))
	assert.Equal(t, ModeFixed, ParseMode(""))
	assert.Equal(t, ModeFixed, ParseMode("garbage"))
}

func TestGreeting(t *testing.T) {
	morning := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	afternoon := time.Date(2026, 8, 28, 13, 30, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)

	assert.Contains(t, Greeting(morning), "Good Morning")
	assert.Contains(t, Greeting(afternoon), "Good Afternoon")
	assert.Contains(t, Greeting(evening), "Good Evening")
}

func TestErrEmptyCartIsNotAShortfall(t *testing.T) {
	_, err := ValidateAndPriceLines([]LineRequest{line("", 1, "10")}, nil)

	require.ErrorIs(t, err, ErrEmptyCart)
	var shortErr *StockShortfallError
	assert.False(t, errors.As(err, &shortErr))
}
