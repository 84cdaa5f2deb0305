package sales_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/sales"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func catalogProducts() map[sales.ProductID]sales.Product {
	return map[sales.ProductID]sales.Product{
		"P1": {ID: "P1", Name: "Tea", Price: money("4"), Active: true},
		"P2": {ID: "P2", Name: "Cake", Price: money("8"), Active: true},
		"P3": {ID: "P3", Name: "Retired", Price: money("3"), Active: false},
	}
}

// =============================================================================
// RECONCILE TESTS
// =============================================================================

func TestReconcile_UsesCatalogPriceAndCustomOverride(t *testing.T) {
	// GIVEN: P1 at 4, P2 at 8 with a per-line override of 5
	// WHEN: Reconciling 3×P1 and 1×P2
	// THEN: calculated total is 3*4 + 1*5 = 17, unit prices come from the catalog

	rec, err := sales.Reconcile([]sales.LineRequest{
		{ProductID: "P1", Quantity: 3},
		{ProductID: "P2", Quantity: 1, CustomPrice: ptr(money("5"))},
	}, catalogProducts())
	require.NoError(t, err)

	assert.True(t, rec.CalculatedTotal.Equal(money("17")), "got %s", rec.CalculatedTotal)
	require.Len(t, rec.Lines, 2)
	assert.True(t, rec.Lines[0].UnitPrice.Equal(money("4")))
	assert.Nil(t, rec.Lines[0].CustomPrice)
	assert.True(t, rec.Lines[1].UnitPrice.Equal(money("8")), "unit price stays authoritative")
	require.NotNil(t, rec.Lines[1].CustomPrice)
	assert.True(t, rec.Lines[1].CustomPrice.Equal(money("5")))
	assert.Equal(t, "Cake", rec.Lines[1].ProductName)
}

func TestReconcile_ZeroCustomPriceIsAnOverride(t *testing.T) {
	rec, err := sales.Reconcile([]sales.LineRequest{
		{ProductID: "P2", Quantity: 2, CustomPrice: ptr(decimal.Zero)},
	}, catalogProducts())
	require.NoError(t, err)
	assert.True(t, rec.CalculatedTotal.IsZero())
}

func TestReconcile_CustomPriceIsCopied(t *testing.T) {
	custom := money("5")
	lines := []sales.LineRequest{{ProductID: "P2", Quantity: 1, CustomPrice: &custom}}

	rec, err := sales.Reconcile(lines, catalogProducts())
	require.NoError(t, err)

	custom = money("99")
	assert.True(t, rec.Lines[0].CustomPrice.Equal(money("5")))
}

func TestReconcile_UnknownOrInactiveProduct(t *testing.T) {
	for _, id := range []sales.ProductID{"P3", "missing"} {
		_, err := sales.Reconcile([]sales.LineRequest{
			{ProductID: "P1", Quantity: 1},
			{ProductID: id, Quantity: 1},
		}, catalogProducts())

		require.Error(t, err)
		assert.True(t, errors.Is(err, sales.ErrProductInvalid))
		var verr *sales.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 1, verr.Line)
	}
}

// =============================================================================
// DECLARED TOTAL TESTS
// =============================================================================

func TestCheckDeclaredTotal(t *testing.T) {
	calculated := money("17")

	tests := []struct {
		name     string
		declared *decimal.Decimal
		wantErr  bool
	}{
		{"absent", nil, false},
		{"exact", ptr(money("17")), false},
		{"float noise below", ptr(money("16.999999")), false},
		{"at tolerance", ptr(money("17.01")), false},
		{"just over tolerance", ptr(money("17.011")), true},
		{"tampered", ptr(money("20")), true},
		{"zero declared is still checked", ptr(decimal.Zero), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sales.CheckDeclaredTotal(tt.declared, calculated)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, sales.ErrTotalMismatch)
			var mismatch *sales.TotalMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.True(t, mismatch.Calculated.Equal(calculated))
		})
	}
}
