/*
store.go - Persistence interface for sales

PURPOSE:
  Defines what the engine needs from a database. Sales are historical
  records: the store appends them and reads them back. There is no update.

ATOMIC WRITES:
  AppendSale writes the header and every item as one unit. Either all rows
  exist afterward or none do, and no reader ever sees a sale without its
  items.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - sales/memstore: In-memory store for tests and demos
*/
package sales

import (
	"context"
	"time"
)

// SaleFilter narrows a sale history query. Zero values mean "no bound".
type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	EmployeeID EmployeeID
	Limit      int
	Offset     int
}

// Matches reports whether s passes the date and employee bounds. Limit and
// Offset are applied by the store.
func (f SaleFilter) Matches(s Sale) bool {
	if f.From != nil && s.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && s.CreatedAt.After(*f.To) {
		return false
	}
	if f.EmployeeID != "" && s.EmployeeID != f.EmployeeID {
		return false
	}
	return true
}

// SaleStore persists sales.
// IMPORTANT: append-only. Corrections are made by an administrator deleting
// the whole sale, never by editing it.
type SaleStore interface {
	// AppendSale persists the header and all items atomically.
	// Returns ErrDuplicateSale if the id already exists.
	AppendSale(ctx context.Context, sale Sale) error

	// GetSale returns a sale with its items, or ErrSaleNotFound.
	GetSale(ctx context.Context, id SaleID) (*Sale, error)

	// ListSales returns matching sales with items, newest first.
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error)

	// CountSales counts matching sales, ignoring Limit and Offset.
	CountSales(ctx context.Context, filter SaleFilter) (int, error)
}
