/*
Package sales provides the sale transaction engine.

PURPOSE:
  Validates a multi-line sale against live catalog state, reconciles the
  client-declared totals with the authoritative prices, and commits the
  sale header and its line items as a single atomic unit.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee / Product: Catalog records, owned by the Catalog accessor
  - Sale: Immutable header (who, when, what was charged)
  - SaleItem: One product-quantity line with a price snapshot
  - CommitRequest: What a client submits to record a sale

INVARIANTS:
  1. TotalAmount == Σ (CustomPrice ?? UnitPrice) × Quantity, fixed at commit
  2. Effective amount == CustomTotal ?? TotalAmount
  3. UnitPrice is the catalog price captured at sale time, never re-read

USAGE:
  svc := sales.NewService(catalog, store)
  receipt, err := svc.Commit(ctx, sales.CommitRequest{
      EmployeeID: "emp-1",
      Items: []sales.LineRequest{{ProductID: "prod-1", Quantity: 2}},
  })

SEE ALSO:
  - reconcile.go: Authoritative pricing and the total tolerance check
  - validate.go: Rejection rules evaluated before any write
  - commit.go: Atomic persistence and the completion notification
*/
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ProductID string
type SaleID string

// =============================================================================
// CATALOG RECORDS
// =============================================================================

// Employee is a person allowed to record sales while active.
type Employee struct {
	ID        EmployeeID
	Name      string
	Mobile    string
	Email     string
	Address   string
	HireDate  time.Time
	Active    bool
	CreatedAt time.Time
}

// Product is a sellable catalog entry. Price is authoritative.
type Product struct {
	ID          ProductID
	Name        string
	Price       decimal.Decimal
	Active      bool
	SKU         string
	Barcode     string
	Description string
	Category    string
	CreatedAt   time.Time
}

// =============================================================================
// SALE - Immutable historical record
// =============================================================================

// SaleItem is one line of a sale. UnitPrice is the product price at the time
// of the sale; CustomPrice overrides it for this line only.
type SaleItem struct {
	ProductID   ProductID
	ProductName string // denormalized for display, filled on reads
	Quantity    int
	UnitPrice   decimal.Decimal
	CustomPrice *decimal.Decimal
}

// EffectivePrice returns CustomPrice when present, else UnitPrice.
func (i SaleItem) EffectivePrice() decimal.Decimal {
	if i.CustomPrice != nil {
		return *i.CustomPrice
	}
	return i.UnitPrice
}

// LineTotal is the amount this line contributes to the sale total.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is a committed sale. There is no update path: once written, a sale
// and its items are read-only.
type Sale struct {
	ID           SaleID
	EmployeeID   EmployeeID
	EmployeeName string // denormalized for display, filled on reads
	CreatedAt    time.Time
	TotalAmount  decimal.Decimal
	CustomTotal  *decimal.Decimal
	Notes        string
	Items        []SaleItem
}

// EffectiveAmount is the figure used for reporting: a whole-sale override
// always wins over the computed total.
func (s Sale) EffectiveAmount() decimal.Decimal {
	if s.CustomTotal != nil {
		return *s.CustomTotal
	}
	return s.TotalAmount
}

// Clone returns a copy that shares no memory with s.
func (s Sale) Clone() Sale {
	c := s
	if s.CustomTotal != nil {
		v := *s.CustomTotal
		c.CustomTotal = &v
	}
	c.Items = make([]SaleItem, len(s.Items))
	for i, item := range s.Items {
		c.Items[i] = item
		if item.CustomPrice != nil {
			v := *item.CustomPrice
			c.Items[i].CustomPrice = &v
		}
	}
	return c
}

// ItemsTotal recomputes Σ line totals from the stored items.
func (s Sale) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// =============================================================================
// COMMIT REQUEST - Client input
// =============================================================================

// LineRequest is a requested line. Prices supplied by the client are never
// trusted for the unit price; CustomPrice is kept as an explicit override.
type LineRequest struct {
	ProductID   ProductID
	Quantity    int
	CustomPrice *decimal.Decimal
}

// CommitRequest is the input of the Commit Sale operation.
type CommitRequest struct {
	EmployeeID  EmployeeID
	Items       []LineRequest
	TotalAmount *decimal.Decimal // optional, cross-checked against the calculated total
	CustomTotal *decimal.Decimal // optional, passed through unvalidated
	Notes       string
}

// Receipt is the persisted sale together with the catalog view used to
// display it right after commit.
type Receipt struct {
	Sale     Sale
	Employee Employee
	Products map[ProductID]Product
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (r Receipt) Clone() Receipt {
	c := Receipt{Sale: r.Sale.Clone(), Employee: r.Employee}
	if r.Products != nil {
		c.Products = make(map[ProductID]Product, len(r.Products))
		for id, p := range r.Products {
			c.Products[id] = p
		}
	}
	return c
}
