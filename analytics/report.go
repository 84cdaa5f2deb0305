package analytics

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/sales"
)

// =============================================================================
// SUMMARY
// =============================================================================

// Summary holds headline figures over a sale history.
type Summary struct {
	TotalCount        int
	TotalRevenue      decimal.Decimal
	TodayRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal
	MedianOrderValue  decimal.Decimal
	LargestOrder      decimal.Decimal
}

// Summarize computes the headline figures. "Today" is the calendar day of
// now in now's location.
func Summarize(history []sales.Sale, now time.Time) Summary {
	sum := Summary{
		TotalRevenue:      decimal.Zero,
		TodayRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		MedianOrderValue:  decimal.Zero,
		LargestOrder:      decimal.Zero,
	}
	today := DayOf(now)

	amounts := make(stats.Float64Data, 0, len(history))
	for _, s := range history {
		if !counted(s) {
			continue
		}
		amount := s.EffectiveAmount()
		sum.TotalCount++
		sum.TotalRevenue = sum.TotalRevenue.Add(amount)
		if DayOf(s.CreatedAt.In(now.Location())) == today {
			sum.TodayRevenue = sum.TodayRevenue.Add(amount)
		}
		amounts = append(amounts, amount.InexactFloat64())
	}

	if sum.TotalCount == 0 {
		return sum
	}
	sum.AverageOrderValue = sum.TotalRevenue.Div(decimal.NewFromInt(int64(sum.TotalCount))).Round(2)
	if median, err := amounts.Median(); err == nil {
		sum.MedianOrderValue = decimal.NewFromFloat(median).Round(2)
	}
	if largest, err := amounts.Max(); err == nil {
		sum.LargestOrder = decimal.NewFromFloat(largest).Round(2)
	}
	return sum
}

// =============================================================================
// REPORT - Combined analytics view
// =============================================================================

// Query selects what Build includes. Zero sizes fall back to the dashboard
// defaults.
type Query struct {
	// EmployeeID adds a velocity figure for that employee when set.
	EmployeeID      sales.EmployeeID
	LeaderboardSize int
	TopProductsSize int
	TrendDays       int
}

// Report is the combined analytics view.
type Report struct {
	Leaderboard []EmployeePerformance
	Trend       []DayRevenue
	TopProducts []ProductPerformance
	Velocity    *decimal.Decimal
	Summary     Summary
}

// Build computes a full report over history as seen at now.
func Build(history []sales.Sale, q Query, now time.Time) Report {
	if q.LeaderboardSize <= 0 {
		q.LeaderboardSize = DashboardLeaderboardSize
	}
	if q.TopProductsSize <= 0 {
		q.TopProductsSize = AdminTopProductsSize
	}
	if q.TrendDays <= 0 {
		q.TrendDays = DefaultTrendDays
	}

	r := Report{
		Leaderboard: Leaderboard(history, q.LeaderboardSize),
		Trend:       Trend(history, q.TrendDays, now),
		TopProducts: TopProducts(history, q.TopProductsSize),
		Summary:     Summarize(history, now),
	}
	if q.EmployeeID != "" {
		v := Velocity(history, q.EmployeeID, now)
		r.Velocity = &v
	}
	return r
}

// =============================================================================
// EMPLOYEE DASHBOARD
// =============================================================================

// RecentSalesSize is how many sales the employee dashboard lists.
const RecentSalesSize = 5

// EmployeeDashboard is one employee's own view of their performance.
type EmployeeDashboard struct {
	EmployeeID    sales.EmployeeID
	TodayTotal    decimal.Decimal
	TodayOrders   int
	LifetimeTotal decimal.Decimal
	Velocity      decimal.Decimal
	RecentSales   []sales.Sale
	TopProducts   []ProductPerformance
}

// ForEmployee builds an employee dashboard. history must be that employee's
// sales, newest first.
func ForEmployee(employeeID sales.EmployeeID, history []sales.Sale, now time.Time) EmployeeDashboard {
	var own []sales.Sale
	for _, s := range history {
		if s.EmployeeID == employeeID {
			own = append(own, s)
		}
	}

	summary := Summarize(own, now)
	today := DayOf(now)
	todayOrders := 0
	for _, s := range own {
		if counted(s) && DayOf(s.CreatedAt.In(now.Location())) == today {
			todayOrders++
		}
	}

	return EmployeeDashboard{
		EmployeeID:    employeeID,
		TodayTotal:    summary.TodayRevenue,
		TodayOrders:   todayOrders,
		LifetimeTotal: summary.TotalRevenue,
		Velocity:      Velocity(own, employeeID, now),
		RecentSales:   truncate(own, RecentSalesSize),
		TopProducts:   TopProducts(own, EmployeeTopProductsSize),
	}
}
