// Package memstore provides an in-memory Catalog and SaleStore.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/shop-engine/sales"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[sales.EmployeeID]sales.Employee
	products  map[sales.ProductID]sales.Product
	sales     []sales.Sale // ascending by CreatedAt
	ids       map[sales.SaleID]bool
}

var (
	_ sales.Catalog   = (*Memory)(nil)
	_ sales.SaleStore = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		employees: make(map[sales.EmployeeID]sales.Employee),
		products:  make(map[sales.ProductID]sales.Product),
		ids:       make(map[sales.SaleID]bool),
	}
}

// SaveEmployee inserts or replaces an employee.
func (m *Memory) SaveEmployee(e sales.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

// SaveProduct inserts or replaces a product.
func (m *Memory) SaveProduct(p sales.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *Memory) Employee(_ context.Context, id sales.EmployeeID) (*sales.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) Product(_ context.Context, id sales.ProductID) (*sales.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// AppendSale adds a sale and its items under one lock, so readers observe
// either the whole sale or nothing.
func (m *Memory) AppendSale(_ context.Context, sale sales.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ids[sale.ID] {
		return sales.ErrDuplicateSale
	}

	// Binary search for insertion point, keeps history ordered by CreatedAt
	i := sort.Search(len(m.sales), func(i int) bool {
		return m.sales[i].CreatedAt.After(sale.CreatedAt)
	})
	m.sales = append(m.sales, sales.Sale{})
	copy(m.sales[i+1:], m.sales[i:])
	m.sales[i] = sale.Clone()
	m.ids[sale.ID] = true
	return nil
}

func (m *Memory) GetSale(_ context.Context, id sales.SaleID) (*sales.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sales {
		if s.ID == id {
			c := s.Clone()
			return &c, nil
		}
	}
	return nil, sales.ErrSaleNotFound
}

func (m *Memory) ListSales(_ context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []sales.Sale
	skipped := 0
	for i := len(m.sales) - 1; i >= 0; i-- {
		s := m.sales[i]
		if !filter.Matches(s) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, s.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *Memory) CountSales(_ context.Context, filter sales.SaleFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sales {
		if filter.Matches(s) {
			n++
		}
	}
	return n, nil
}

// DeleteSale removes a sale together with its items.
func (m *Memory) DeleteSale(_ context.Context, id sales.SaleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sales {
		if s.ID == id {
			m.sales = append(m.sales[:i], m.sales[i+1:]...)
			delete(m.ids, id)
			return nil
		}
	}
	return sales.ErrSaleNotFound
}
