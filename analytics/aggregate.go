/*
Package analytics computes sales reports from committed sale history.

PURPOSE:
  Every function here is a pure aggregation over a slice of sales that is
  already persisted. Nothing is cached between calls; each report is
  recomputed from the history it is given.

KEY CONCEPTS:
  - Effective amount: CustomTotal ?? TotalAmount, the only figure used for
    sale-level revenue
  - Line revenue: (CustomPrice ?? UnitPrice) × Quantity, used for products
  - Local calendar day: trend and "today" buckets use the location of the
    reference time

TOLERATED DATA:
  A sale with zero items is malformed history. It contributes nothing to
  any aggregate: no revenue, no order count, no product lines.

SEE ALSO:
  - report.go: Builds the combined report served by the API
  - period.go: Calendar day arithmetic
*/
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/sales"
)

// Default list sizes.
const (
	DashboardLeaderboardSize = 5
	EmployeeTopProductsSize  = 3
	AdminTopProductsSize     = 10
	DefaultTrendDays         = 7
)

// EmployeePerformance is one leaderboard row.
type EmployeePerformance struct {
	EmployeeID sales.EmployeeID
	Name       string
	Revenue    decimal.Decimal
	Orders     int
}

// DayRevenue is one point of a trend.
type DayRevenue struct {
	Date    Day
	Revenue decimal.Decimal
	Orders  int
}

// ProductPerformance is one top-products row.
type ProductPerformance struct {
	ProductID sales.ProductID
	Name      string
	Quantity  int
	Revenue   decimal.Decimal
}

func counted(s sales.Sale) bool {
	return len(s.Items) > 0
}

// =============================================================================
// LEADERBOARD
// =============================================================================

// Leaderboard ranks employees by summed effective amount, highest first.
// Ties keep the order in which employees first appear in history. n <= 0
// returns every employee.
func Leaderboard(history []sales.Sale, n int) []EmployeePerformance {
	index := make(map[sales.EmployeeID]int)
	var rows []EmployeePerformance

	for _, s := range history {
		if !counted(s) {
			continue
		}
		i, ok := index[s.EmployeeID]
		if !ok {
			i = len(rows)
			index[s.EmployeeID] = i
			rows = append(rows, EmployeePerformance{EmployeeID: s.EmployeeID, Name: s.EmployeeName, Revenue: decimal.Zero})
		}
		rows[i].Revenue = rows[i].Revenue.Add(s.EffectiveAmount())
		rows[i].Orders++
		if rows[i].Name == "" {
			rows[i].Name = s.EmployeeName
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Revenue.GreaterThan(rows[b].Revenue)
	})
	return truncate(rows, n)
}

// =============================================================================
// TREND
// =============================================================================

// Trend returns exactly days entries, one per calendar day ending on the day
// of now (inclusive), oldest first. Days without sales report zero. Buckets
// use now's location.
func Trend(history []sales.Sale, days int, now time.Time) []DayRevenue {
	if days < 1 {
		days = DefaultTrendDays
	}
	period := LastDays(DayOf(now), days)

	points := make([]DayRevenue, 0, days)
	index := make(map[Day]int, days)
	for i, d := range period.Days() {
		points = append(points, DayRevenue{Date: d, Revenue: decimal.Zero})
		index[d] = i
	}

	loc := now.Location()
	for _, s := range history {
		if !counted(s) {
			continue
		}
		i, ok := index[DayOf(s.CreatedAt.In(loc))]
		if !ok {
			continue
		}
		points[i].Revenue = points[i].Revenue.Add(s.EffectiveAmount())
		points[i].Orders++
	}
	return points
}

// =============================================================================
// VELOCITY
// =============================================================================

// Velocity is today's effective revenue for one employee divided by the
// hours elapsed since local midnight, with the divisor floored at 1 hour.
func Velocity(history []sales.Sale, employeeID sales.EmployeeID, now time.Time) decimal.Decimal {
	today := DayOf(now)
	total := decimal.Zero
	for _, s := range history {
		if s.EmployeeID != employeeID || !counted(s) {
			continue
		}
		if DayOf(s.CreatedAt.In(now.Location())) == today {
			total = total.Add(s.EffectiveAmount())
		}
	}
	return total.Div(decimal.NewFromFloat(HoursSinceMidnight(now)))
}

// HoursSinceMidnight returns the fractional hours since local midnight of
// now, never less than 1.
func HoursSinceMidnight(now time.Time) float64 {
	hours := now.Sub(DayOf(now).Start(now.Location())).Hours()
	if hours < 1 {
		return 1
	}
	return hours
}

// =============================================================================
// TOP PRODUCTS
// =============================================================================

// TopProducts groups line items by product and ranks them by summed line
// revenue, highest first. Ties keep first-appearance order. n <= 0 returns
// every product.
func TopProducts(history []sales.Sale, n int) []ProductPerformance {
	index := make(map[sales.ProductID]int)
	var rows []ProductPerformance

	for _, s := range history {
		for _, item := range s.Items {
			i, ok := index[item.ProductID]
			if !ok {
				i = len(rows)
				index[item.ProductID] = i
				rows = append(rows, ProductPerformance{ProductID: item.ProductID, Name: item.ProductName, Revenue: decimal.Zero})
			}
			rows[i].Quantity += item.Quantity
			rows[i].Revenue = rows[i].Revenue.Add(item.LineTotal())
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Revenue.GreaterThan(rows[b].Revenue)
	})
	return truncate(rows, n)
}

func truncate[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
