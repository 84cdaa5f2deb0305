/*
reconcile.go - Authoritative pricing of a requested sale

PURPOSE:
  Turns requested lines into priced SaleItems using the catalog price, and
  cross-checks a client-declared total against the calculated one.

TRUST BUT VERIFY:
  The client may send prices and totals. Neither is used for computation:
  - UnitPrice always comes from the product record
  - CustomPrice is kept as an explicit per-line override
  - A declared TotalAmount must match the calculated total within Tolerance
  - CustomTotal is an intentional override and is never compared

EXAMPLE:
  P1.price = 4, P2.price = 8
  lines: {P1 x3}, {P2 x1, customPrice 5}
  calculated = 3*4 + 1*5 = 17
  declared 17 → ok, declared 20 → TotalMismatchError

Everything here is pure: no I/O, no clock.
*/
package sales

import "github.com/shopspring/decimal"

// Tolerance is the absolute currency slack allowed between a declared and a
// calculated total.
var Tolerance = decimal.New(1, -2)

// Reconciliation is the priced form of a request.
type Reconciliation struct {
	Lines           []SaleItem
	CalculatedTotal decimal.Decimal
}

// Reconcile prices every line from products. A line whose product is absent
// from products or inactive fails with ErrProductInvalid.
func Reconcile(lines []LineRequest, products map[ProductID]Product) (Reconciliation, error) {
	rec := Reconciliation{
		Lines:           make([]SaleItem, 0, len(lines)),
		CalculatedTotal: decimal.Zero,
	}

	for i, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || !product.Active {
			return Reconciliation{}, &ValidationError{
				Kind:    ErrProductInvalid,
				Field:   "productId",
				Line:    i,
				Message: "product " + string(line.ProductID) + " not found or inactive",
			}
		}

		item := SaleItem{
			ProductID:   line.ProductID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		}
		if line.CustomPrice != nil {
			custom := *line.CustomPrice
			item.CustomPrice = &custom
		}

		rec.Lines = append(rec.Lines, item)
		rec.CalculatedTotal = rec.CalculatedTotal.Add(item.LineTotal())
	}

	return rec, nil
}

// CheckDeclaredTotal verifies a client-declared total. A nil declaration
// always passes.
func CheckDeclaredTotal(declared *decimal.Decimal, calculated decimal.Decimal) error {
	if declared == nil {
		return nil
	}
	if !WithinTolerance(*declared, calculated) {
		return &TotalMismatchError{Declared: *declared, Calculated: calculated}
	}
	return nil
}

// WithinTolerance reports |a - b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
