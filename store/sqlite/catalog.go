package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/sales"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, mobile, email, address, hire_date, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (sales.Employee, error) {
	var (
		e         sales.Employee
		email     sql.NullString
		address   sql.NullString
		hireDate  sql.NullString
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Mobile, &email, &address, &hireDate, &e.Active, &createdAt); err != nil {
		return e, err
	}
	e.Email = email.String
	e.Address = address.String
	if hireDate.Valid {
		e.HireDate = parseTime(hireDate.String)
	}
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// Employee returns an employee by id (active or not), or nil if unknown.
func (s *Store) Employee(ctx context.Context, id sales.EmployeeID) (*sales.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := scanEmployee(s.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return &e, nil
}

// FindEmployeeByMobile returns the employee registered with mobile, or nil.
func (s *Store) FindEmployeeByMobile(ctx context.Context, mobile string) (*sales.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := scanEmployee(s.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE mobile = ?", mobile))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return &e, nil
}

// EmployeeRow is an employee listing entry with the number of sales they
// recorded.
type EmployeeRow struct {
	sales.Employee
	SalesCount int
}

// ListEmployees returns the employees matching f, ordered by f.SortBy
// (name by default). Search matches name or mobile.
func (s *Store) ListEmployees(ctx context.Context, f CatalogFilter) ([]EmployeeRow, error) {
	order, err := f.orderBy(employeeSortColumns)
	if err != nil {
		return nil, err
	}
	where, args := f.employeeWhere()
	page, pageArgs := f.page()
	args = append(args, pageArgs...)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + employeeColumns + `,
		(SELECT COUNT(*) FROM sales WHERE sales.employee_id = employees.id)
		FROM employees` + where + order + page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []EmployeeRow
	for rows.Next() {
		var (
			row       EmployeeRow
			email     sql.NullString
			address   sql.NullString
			hireDate  sql.NullString
			createdAt string
		)
		e := &row.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Mobile, &email, &address, &hireDate, &e.Active, &createdAt, &row.SalesCount); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.Email = email.String
		e.Address = address.String
		if hireDate.Valid {
			e.HireDate = parseTime(hireDate.String)
		}
		e.CreatedAt = parseTime(createdAt)
		employees = append(employees, row)
	}
	return employees, rows.Err()
}

// CountEmployees counts the employees matching f, ignoring paging.
func (s *Store) CountEmployees(ctx context.Context, f CatalogFilter) (int, error) {
	where, args := f.employeeWhere()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM employees"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// CreateEmployee inserts a new employee. Returns sales.ErrConflict if the
// mobile number is taken.
func (s *Store) CreateEmployee(ctx context.Context, e sales.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Mobile, nullString(e.Email), nullString(e.Address),
		nullTime(e.HireDate), e.Active, formatTime(e.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: employee %s already exists", sales.ErrConflict, uniqueColumn(err))
	}
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// UpdateEmployee replaces the editable fields of an existing employee.
func (s *Store) UpdateEmployee(ctx context.Context, e sales.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET name = ?, mobile = ?, email = ?, address = ?, hire_date = ?, active = ?
		WHERE id = ?`,
		e.Name, e.Mobile, nullString(e.Email), nullString(e.Address),
		nullTime(e.HireDate), e.Active, e.ID,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: employee %s already exists", sales.ErrConflict, uniqueColumn(err))
	}
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return rowsAffected(res, sales.ErrEmployeeNotFound)
}

// SetEmployeeActive activates or deactivates an employee. Employees are
// never deleted: their sales keep referencing them.
func (s *Store) SetEmployeeActive(ctx context.Context, id sales.EmployeeID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE employees SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return rowsAffected(res, sales.ErrEmployeeNotFound)
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, name, price, active, sku, barcode, description, category, created_at`

func scanProduct(row scanner) (sales.Product, error) {
	var (
		p           sales.Product
		price       string
		sku         sql.NullString
		barcode     sql.NullString
		description sql.NullString
		category    sql.NullString
		createdAt   string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Active, &sku, &barcode, &description, &category, &createdAt); err != nil {
		return p, err
	}
	var err error
	if p.Price, err = parseDecimal(price); err != nil {
		return p, err
	}
	p.SKU = sku.String
	p.Barcode = barcode.String
	p.Description = description.String
	p.Category = category.String
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// Product returns a product by id (active or not), or nil if unknown.
func (s *Store) Product(ctx context.Context, id sales.ProductID) (*sales.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanProduct(s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &p, nil
}

// ListProducts returns the products matching f, ordered by f.SortBy (name
// by default). Search matches name or description.
func (s *Store) ListProducts(ctx context.Context, f CatalogFilter) ([]sales.Product, error) {
	order, err := f.orderBy(productSortColumns)
	if err != nil {
		return nil, err
	}
	where, args := f.productWhere()
	page, pageArgs := f.page()
	args = append(args, pageArgs...)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products"+where+order+page, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []sales.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts counts the products matching f, ignoring paging.
func (s *Store) CountProducts(ctx context.Context, f CatalogFilter) (int, error) {
	where, args := f.productWhere()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// CreateProduct inserts a new product. Returns sales.ErrConflict if the SKU
// or barcode is taken.
func (s *Store) CreateProduct(ctx context.Context, p sales.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price.String(), p.Active, nullString(p.SKU), nullString(p.Barcode),
		nullString(p.Description), nullString(p.Category), formatTime(p.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: product %s already exists", sales.ErrConflict, uniqueColumn(err))
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct replaces the editable fields of an existing product. Sales
// already committed keep the price they were charged at.
func (s *Store) UpdateProduct(ctx context.Context, p sales.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, price = ?, active = ?, sku = ?, barcode = ?, description = ?, category = ?
		WHERE id = ?`,
		p.Name, p.Price.String(), p.Active, nullString(p.SKU), nullString(p.Barcode),
		nullString(p.Description), nullString(p.Category), p.ID,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: product %s already exists", sales.ErrConflict, uniqueColumn(err))
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return rowsAffected(res, sales.ErrProductNotFound)
}

// SetProductActive activates or deactivates a product.
func (s *Store) SetProductActive(ctx context.Context, id sales.ProductID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE products SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return rowsAffected(res, sales.ErrProductNotFound)
}

// CatalogCounts holds active record counts for the dashboard.
type CatalogCounts struct {
	ActiveEmployees int
	ActiveProducts  int
}

// CountCatalog counts active employees and products.
func (s *Store) CountCatalog(ctx context.Context) (CatalogCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c CatalogCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM employees WHERE active = 1),
			(SELECT COUNT(*) FROM products WHERE active = 1)`,
	).Scan(&c.ActiveEmployees, &c.ActiveProducts)
	if err != nil {
		return c, fmt.Errorf("failed to count catalog: %w", err)
	}
	return c, nil
}

// EmployeeStats describes the whole employee table, whatever the filter.
type EmployeeStats struct {
	Total    int
	Active   int
	Inactive int
	// ActiveSales counts sales recorded by currently active employees.
	ActiveSales int
}

// EmployeeStats computes table-wide employee figures.
func (s *Store) EmployeeStats(ctx context.Context) (EmployeeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st EmployeeStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM employees),
			(SELECT COUNT(*) FROM employees WHERE active = 1),
			(SELECT COUNT(*) FROM sales JOIN employees e ON e.id = sales.employee_id WHERE e.active = 1)`,
	).Scan(&st.Total, &st.Active, &st.ActiveSales)
	if err != nil {
		return st, fmt.Errorf("failed to compute employee stats: %w", err)
	}
	st.Inactive = st.Total - st.Active
	return st, nil
}

// ProductStats describes the whole product table, whatever the filter.
// Prices are zero when there are no products.
type ProductStats struct {
	Total    int
	Active   int
	Inactive int
	AvgPrice decimal.Decimal
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

// ProductStats computes table-wide product figures. Prices are aggregated
// as decimals, not in SQL, since they are stored as text.
func (s *Store) ProductStats(ctx context.Context) (ProductStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := ProductStats{AvgPrice: decimal.Zero, MinPrice: decimal.Zero, MaxPrice: decimal.Zero}
	rows, err := s.db.QueryContext(ctx, "SELECT price, active FROM products")
	if err != nil {
		return st, fmt.Errorf("failed to compute product stats: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var (
			raw    string
			active bool
		)
		if err := rows.Scan(&raw, &active); err != nil {
			return st, fmt.Errorf("failed to scan product price: %w", err)
		}
		price, err := parseDecimal(raw)
		if err != nil {
			return st, err
		}
		if st.Total == 0 || price.LessThan(st.MinPrice) {
			st.MinPrice = price
		}
		if st.Total == 0 || price.GreaterThan(st.MaxPrice) {
			st.MaxPrice = price
		}
		sum = sum.Add(price)
		st.Total++
		if active {
			st.Active++
		}
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	st.Inactive = st.Total - st.Active
	if st.Total > 0 {
		st.AvgPrice = sum.Div(decimal.NewFromInt(int64(st.Total))).Round(2)
	}
	return st, nil
}
