package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/warp/shop-engine/sales"
)

// itemBatchSize bounds the number of ids in one IN (...) clause.
const itemBatchSize = 500

// =============================================================================
// SALE STORE (sales.SaleStore interface)
// =============================================================================

// AppendSale inserts the sale header and all items in one SQL transaction.
func (s *Store) AppendSale(ctx context.Context, sale sales.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSale(ctx, tx, sale); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}
	return nil
}

func insertSale(ctx context.Context, db execer, sale sales.Sale) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sales (id, employee_id, total_amount, custom_total, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.EmployeeID, sale.TotalAmount.String(), nullDecimal(sale.CustomTotal),
		nullString(sale.Notes), formatTime(sale.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return sales.ErrDuplicateSale
	}
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	for i, item := range sale.Items {
		_, err := db.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, line, product_id, quantity, unit_price, custom_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sale.ID, i, item.ProductID, item.Quantity, item.UnitPrice.String(), nullDecimal(item.CustomPrice),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item %d: %w", i, err)
		}
	}
	return nil
}

// GetSale returns a sale with its items.
func (s *Store) GetSale(ctx context.Context, id sales.SaleID) (*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.querySales(ctx, saleSelect+" WHERE s.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sales.ErrSaleNotFound
	}
	return &list[0], nil
}

// ListSales returns matching sales, newest first.
func (s *Store) ListSales(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := filterClause(filter)
	page, pageArgs := pageClause(filter.Limit, filter.Offset)
	query := saleSelect + where + " ORDER BY s.created_at DESC, s.id DESC" + page
	return s.querySales(ctx, query, append(args, pageArgs...)...)
}

// CountSales counts matching sales, ignoring Limit and Offset.
func (s *Store) CountSales(ctx context.Context, filter sales.SaleFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := filterClause(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales s"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return n, nil
}

// DeleteSale removes a sale; its items go with it through the cascade.
func (s *Store) DeleteSale(ctx context.Context, id sales.SaleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	return rowsAffected(res, sales.ErrSaleNotFound)
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

const saleSelect = `
	SELECT s.id, s.employee_id, COALESCE(e.name, ''), s.total_amount, s.custom_total, s.notes, s.created_at
	FROM sales s
	LEFT JOIN employees e ON e.id = s.employee_id`

func filterClause(f sales.SaleFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.From != nil {
		conds = append(conds, "s.created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "s.created_at <= ?")
		args = append(args, formatTime(*f.To))
	}
	if f.EmployeeID != "" {
		conds = append(conds, "s.employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// querySales loads headers, then their items. Callers hold s.mu.
func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]sales.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}

	var list []sales.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, sale)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := s.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func scanSale(rows *sql.Rows) (sales.Sale, error) {
	var (
		sale        sales.Sale
		total       string
		customTotal sql.NullString
		notes       sql.NullString
		createdAt   string
	)
	if err := rows.Scan(&sale.ID, &sale.EmployeeID, &sale.EmployeeName, &total, &customTotal, &notes, &createdAt); err != nil {
		return sale, fmt.Errorf("failed to scan sale: %w", err)
	}
	var err error
	if sale.TotalAmount, err = parseDecimal(total); err != nil {
		return sale, err
	}
	if sale.CustomTotal, err = parseNullDecimal(customTotal); err != nil {
		return sale, err
	}
	sale.Notes = notes.String
	sale.CreatedAt = parseTime(createdAt)
	return sale, nil
}

func (s *Store) attachItems(ctx context.Context, list []sales.Sale) error {
	index := make(map[sales.SaleID]int, len(list))
	for i, sale := range list {
		index[sale.ID] = i
		list[i].Items = []sales.SaleItem{}
	}

	for start := 0; start < len(list); start += itemBatchSize {
		end := min(start+itemBatchSize, len(list))
		args := make([]any, 0, end-start)
		for _, sale := range list[start:end] {
			args = append(args, sale.ID)
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT si.sale_id, si.product_id, COALESCE(p.name, ''), si.quantity, si.unit_price, si.custom_price
			FROM sale_items si
			LEFT JOIN products p ON p.id = si.product_id
			WHERE si.sale_id IN (`+placeholders(len(args))+`)
			ORDER BY si.sale_id, si.line`, args...)
		if err != nil {
			return fmt.Errorf("failed to query sale items: %w", err)
		}

		for rows.Next() {
			var (
				saleID      sales.SaleID
				item        sales.SaleItem
				unitPrice   string
				customPrice sql.NullString
			)
			if err := rows.Scan(&saleID, &item.ProductID, &item.ProductName, &item.Quantity, &unitPrice, &customPrice); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan sale item: %w", err)
			}
			if item.UnitPrice, err = parseDecimal(unitPrice); err != nil {
				rows.Close()
				return err
			}
			if item.CustomPrice, err = parseNullDecimal(customPrice); err != nil {
				rows.Close()
				return err
			}
			i := index[saleID]
			list[i].Items = append(list[i].Items, item)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
