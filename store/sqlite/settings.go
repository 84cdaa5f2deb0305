package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHOP SETTINGS
// =============================================================================

// DefaultShopName is reported until settings are saved.
const DefaultShopName = "My Shop"

// ShopSettings is the single shop profile shown on receipts.
type ShopSettings struct {
	Name      string
	Phone     string
	Address   string
	UpdatedAt time.Time
}

// ShopSettings returns the saved profile, or the defaults.
func (s *Store) ShopSettings(ctx context.Context) (ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		settings  ShopSettings
		phone     sql.NullString
		address   sql.NullString
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT name, phone, address, updated_at FROM shop_settings WHERE id = 1",
	).Scan(&settings.Name, &phone, &address, &updatedAt)
	if isNoRows(err) {
		return ShopSettings{Name: DefaultShopName}, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to load shop settings: %w", err)
	}
	settings.Phone = phone.String
	settings.Address = address.String
	settings.UpdatedAt = parseTime(updatedAt)
	return settings, nil
}

// SaveShopSettings upserts the shop profile and returns what was stored.
func (s *Store) SaveShopSettings(ctx context.Context, settings ShopSettings) (ShopSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_settings (id, name, phone, address, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			address = excluded.address,
			updated_at = excluded.updated_at`,
		settings.Name, nullString(settings.Phone), nullString(settings.Address), formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return settings, fmt.Errorf("failed to save shop settings: %w", err)
	}
	return settings, nil
}

// =============================================================================
// DAILY SUMMARIES
// =============================================================================

// DailySummary is the closed-day revenue record written by the summary job.
type DailySummary struct {
	Day                string // YYYY-MM-DD in the shop's location
	Revenue            decimal.Decimal
	Orders             int
	TopEmployeeID      string
	TopEmployeeName    string
	TopEmployeeRevenue decimal.Decimal
	CreatedAt          time.Time
}

// SaveDailySummary upserts the summary for its day. Re-running the job for
// a day replaces the earlier figures.
func (s *Store) SaveDailySummary(ctx context.Context, sum DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summaries
			(day, revenue, orders, top_employee_id, top_employee_name, top_employee_revenue, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			revenue = excluded.revenue,
			orders = excluded.orders,
			top_employee_id = excluded.top_employee_id,
			top_employee_name = excluded.top_employee_name,
			top_employee_revenue = excluded.top_employee_revenue,
			created_at = excluded.created_at`,
		sum.Day, sum.Revenue.String(), sum.Orders, nullString(sum.TopEmployeeID),
		nullString(sum.TopEmployeeName), sum.TopEmployeeRevenue.String(), formatTime(sum.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save daily summary: %w", err)
	}
	return nil
}

// ListDailySummaries returns the most recent summaries, newest day first.
// limit <= 0 returns all.
func (s *Store) ListDailySummaries(ctx context.Context, limit int) ([]DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT day, revenue, orders, top_employee_id, top_employee_name, top_employee_revenue, created_at
		FROM daily_summaries
		ORDER BY day DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily summaries: %w", err)
	}
	defer rows.Close()

	var list []DailySummary
	for rows.Next() {
		var (
			sum        DailySummary
			revenue    string
			topID      sql.NullString
			topName    sql.NullString
			topRevenue sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&sum.Day, &revenue, &sum.Orders, &topID, &topName, &topRevenue, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		if sum.Revenue, err = parseDecimal(revenue); err != nil {
			return nil, err
		}
		sum.TopEmployeeRevenue = decimal.Zero
		if topRevenue.Valid {
			if sum.TopEmployeeRevenue, err = parseDecimal(topRevenue.String); err != nil {
				return nil, err
			}
		}
		sum.TopEmployeeID = topID.String
		sum.TopEmployeeName = topName.String
		sum.CreatedAt = parseTime(createdAt)
		list = append(list, sum)
	}
	return list, rows.Err()
}
