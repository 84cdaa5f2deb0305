package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/analytics"
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

var loc = time.FixedZone("shop", 3*60*60)

// now is 14:30 local on 2025-03-10.
var now = time.Date(2025, time.March, 10, 14, 30, 0, 0, loc)

// sale builds a single-line sale whose total matches its items.
func sale(id string, emp sales.EmployeeID, at time.Time, product sales.ProductID, qty int, price string) sales.Sale {
	item := sales.SaleItem{ProductID: product, ProductName: string(product), Quantity: qty, UnitPrice: money(price)}
	return sales.Sale{
		ID:           sales.SaleID(id),
		EmployeeID:   emp,
		EmployeeName: string(emp),
		CreatedAt:    at,
		TotalAmount:  item.LineTotal(),
		Items:        []sales.SaleItem{item},
	}
}

// itemless builds a sale with no lines. customTotal may be empty.
func itemless(id string, emp sales.EmployeeID, at time.Time, customTotal string) sales.Sale {
	s := sales.Sale{ID: sales.SaleID(id), EmployeeID: emp, EmployeeName: string(emp), CreatedAt: at, TotalAmount: decimal.Zero}
	if customTotal != "" {
		s.CustomTotal = ptr(money(customTotal))
	}
	return s
}

func revenues(points []analytics.DayRevenue) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Revenue.StringFixed(2)
	}
	return out
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestPeriod_LastDaysCrossesMonthBoundary(t *testing.T) {
	p := analytics.LastDays(analytics.Day{Year: 2025, Month: time.March, Dom: 2}, 4)

	days := p.Days()
	require.Len(t, days, 4)
	assert.Equal(t, "2025-02-27", days[0].String())
	assert.Equal(t, "2025-03-02", days[3].String())
	assert.True(t, p.Contains(analytics.Day{Year: 2025, Month: time.February, Dom: 28}))
	assert.False(t, p.Contains(analytics.Day{Year: 2025, Month: time.March, Dom: 3}))
}

func TestPeriod_BoundsAreInclusive(t *testing.T) {
	day, err := analytics.ParseDay("2025-03-10")
	require.NoError(t, err)

	from, to := analytics.Period{Start: day, End: day}.Bounds(loc)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2025, time.March, 10, 23, 59, 59, 999999999, loc), to)

	_, err = analytics.ParseDay("10/03/2025")
	assert.Error(t, err)
}

// =============================================================================
// TREND TESTS
// =============================================================================

func TestTrend_SparseDaysAreZeroFilled(t *testing.T) {
	// GIVEN: Sales on D-6 and D-3 only
	// WHEN: Computing a 7-day trend ending at D
	// THEN: Exactly 7 points, nonzero only at positions 0 and 3, oldest first

	history := []sales.Sale{
		sale("s1", "E1", now.AddDate(0, 0, -6), "P1", 1, "10"),
		sale("s2", "E1", now.AddDate(0, 0, -3), "P1", 2, "10"),
	}

	trend := analytics.Trend(history, 7, now)

	require.Len(t, trend, 7)
	assert.Equal(t, []string{"10.00", "0.00", "0.00", "20.00", "0.00", "0.00", "0.00"}, revenues(trend))
	assert.Equal(t, "2025-03-04", trend[0].Date.String())
	assert.Equal(t, "2025-03-10", trend[6].Date.String())
	assert.Equal(t, 1, trend[3].Orders)
}

func TestTrend_UsesLocalCalendarDayNotRolling24h(t *testing.T) {
	// 23:30 yesterday is less than 24h ago but belongs to yesterday
	lateYesterday := time.Date(2025, time.March, 9, 23, 30, 0, 0, loc)
	earlyToday := time.Date(2025, time.March, 10, 0, 15, 0, 0, loc)

	trend := analytics.Trend([]sales.Sale{
		sale("s1", "E1", lateYesterday, "P1", 1, "5"),
		sale("s2", "E1", earlyToday.UTC(), "P1", 1, "7"),
	}, 2, now)

	assert.Equal(t, []string{"5.00", "7.00"}, revenues(trend))
}

func TestTrend_DefaultsToSevenDaysAndUsesEffectiveAmount(t *testing.T) {
	s := sale("s1", "E1", now, "P1", 2, "10")
	s.CustomTotal = ptr(money("15"))

	trend := analytics.Trend([]sales.Sale{s}, 0, now)

	require.Len(t, trend, analytics.DefaultTrendDays)
	assert.Equal(t, "15.00", trend[6].Revenue.StringFixed(2))
}

func TestTrend_SkipsSalesWithoutItems(t *testing.T) {
	// GIVEN: One real sale today and two itemless ones, one carrying a custom total
	history := []sales.Sale{
		sale("s1", "E1", now, "P1", 1, "10"),
		itemless("e1", "E1", now, ""),
		itemless("e2", "E1", now.AddDate(0, 0, -1), "50"),
	}

	// WHEN: Computing a 2-day trend
	trend := analytics.Trend(history, 2, now)

	// THEN: Only the real sale counts, in revenue and in orders
	assert.Equal(t, []string{"0.00", "10.00"}, revenues(trend))
	assert.Equal(t, 0, trend[0].Orders)
	assert.Equal(t, 1, trend[1].Orders)
}

// =============================================================================
// LEADERBOARD TESTS
// =============================================================================

func TestLeaderboard_SortedStableAndTruncated(t *testing.T) {
	history := []sales.Sale{
		sale("s1", "E1", now, "P1", 1, "10"),
		sale("s2", "E2", now, "P1", 3, "10"),
		sale("s3", "E3", now, "P1", 1, "10"),
		sale("s4", "E4", now, "P1", 1, "5"),
		sale("s5", "E5", now, "P1", 2, "10"),
		sale("s6", "E6", now, "P1", 1, "1"),
	}

	board := analytics.Leaderboard(history, analytics.DashboardLeaderboardSize)

	require.Len(t, board, 5)
	var order []sales.EmployeeID
	for _, row := range board {
		order = append(order, row.EmployeeID)
	}
	// E1 and E3 tie at 10: first appearance wins
	assert.Equal(t, []sales.EmployeeID{"E2", "E5", "E1", "E3", "E4"}, order)
	for i := 1; i < len(board); i++ {
		assert.False(t, board[i].Revenue.GreaterThan(board[i-1].Revenue))
	}
}

func TestLeaderboard_SumsEffectiveAmountsAndOrders(t *testing.T) {
	overridden := sale("s2", "E1", now, "P1", 2, "10")
	overridden.CustomTotal = ptr(money("15"))

	board := analytics.Leaderboard([]sales.Sale{
		sale("s1", "E1", now, "P1", 1, "4"),
		overridden,
		{ID: "empty", EmployeeID: "E1", CreatedAt: now, TotalAmount: money("99")},
	}, 0)

	require.Len(t, board, 1)
	assert.True(t, board[0].Revenue.Equal(money("19")))
	assert.Equal(t, 2, board[0].Orders, "zero-item sales are not counted")
}

// =============================================================================
// VELOCITY TESTS
// =============================================================================

func TestVelocity_DivisorFlooredAtOneHour(t *testing.T) {
	early := time.Date(2025, time.March, 10, 0, 30, 0, 0, loc)
	history := []sales.Sale{sale("s1", "E1", early, "P1", 1, "10")}

	assert.Equal(t, 1.0, analytics.HoursSinceMidnight(early))
	assert.True(t, analytics.Velocity(history, "E1", early).Equal(money("10")))
}

func TestVelocity_TodayOnlyForOneEmployee(t *testing.T) {
	history := []sales.Sale{
		sale("s1", "E1", now.Add(-time.Hour), "P1", 1, "20"),
		sale("s2", "E1", now.Add(-2*time.Hour), "P1", 1, "9"),
		sale("s3", "E1", now.AddDate(0, 0, -1), "P1", 1, "100"),
		sale("s4", "E2", now, "P1", 1, "100"),
	}

	// 29 over 14.5 hours
	assert.True(t, analytics.Velocity(history, "E1", now).Equal(money("2")))
	assert.True(t, analytics.Velocity(history, "E3", now).IsZero())
}

func TestVelocity_SkipsSalesWithoutItems(t *testing.T) {
	history := []sales.Sale{
		sale("s1", "E1", now.Add(-time.Hour), "P1", 1, "29"),
		itemless("e1", "E1", now.Add(-time.Minute), "100"),
		itemless("e2", "E2", now, "40"),
	}

	// 29 over 14.5 hours; the 100 override on an itemless sale is ignored
	assert.True(t, analytics.Velocity(history, "E1", now).Equal(money("2")))
	assert.True(t, analytics.Velocity(history, "E2", now).IsZero())
}

// =============================================================================
// TOP PRODUCTS TESTS
// =============================================================================

func TestTopProducts_GroupsLinesAndHonorsCustomPrice(t *testing.T) {
	mixed := sales.Sale{
		ID: "s1", EmployeeID: "E1", CreatedAt: now,
		Items: []sales.SaleItem{
			{ProductID: "P1", ProductName: "Tea", Quantity: 3, UnitPrice: money("4")},
			{ProductID: "P2", ProductName: "Cake", Quantity: 1, UnitPrice: money("8"), CustomPrice: ptr(money("5"))},
		},
	}
	mixed.TotalAmount = mixed.ItemsTotal()

	top := analytics.TopProducts([]sales.Sale{
		mixed,
		sale("s2", "E2", now, "P2", 1, "8"),
		sale("s3", "E2", now, "P3", 1, "1"),
	}, analytics.EmployeeTopProductsSize)

	require.Len(t, top, 3)
	assert.Equal(t, sales.ProductID("P2"), top[0].ProductID)
	assert.True(t, top[0].Revenue.Equal(money("13")))
	assert.Equal(t, 2, top[0].Quantity)
	assert.Equal(t, sales.ProductID("P1"), top[1].ProductID)
	assert.True(t, top[1].Revenue.Equal(money("12")))

	assert.Len(t, analytics.TopProducts([]sales.Sale{mixed}, 1), 1)
}

func TestTopProducts_IgnoresSalesWithoutItems(t *testing.T) {
	history := []sales.Sale{
		itemless("e1", "E1", now, "75"),
		sale("s1", "E1", now, "P1", 2, "3"),
		itemless("e2", "E2", now, ""),
	}

	top := analytics.TopProducts(history, 0)

	require.Len(t, top, 1)
	assert.Equal(t, sales.ProductID("P1"), top[0].ProductID)
	assert.True(t, top[0].Revenue.Equal(money("6")))
	assert.Empty(t, analytics.TopProducts([]sales.Sale{itemless("e3", "E1", now, "5")}, 0))
}

// =============================================================================
// SUMMARY / REPORT TESTS
// =============================================================================

func TestSummarize(t *testing.T) {
	history := []sales.Sale{
		sale("s1", "E1", now, "P1", 1, "10"),
		sale("s2", "E1", now.AddDate(0, 0, -1), "P1", 1, "20"),
		sale("s3", "E2", now, "P1", 1, "60"),
		{ID: "empty", EmployeeID: "E1", CreatedAt: now},
	}

	sum := analytics.Summarize(history, now)

	assert.Equal(t, 3, sum.TotalCount)
	assert.True(t, sum.TotalRevenue.Equal(money("90")))
	assert.True(t, sum.TodayRevenue.Equal(money("70")))
	assert.True(t, sum.AverageOrderValue.Equal(money("30")))
	assert.True(t, sum.MedianOrderValue.Equal(money("20")))
	assert.True(t, sum.LargestOrder.Equal(money("60")))

	empty := analytics.Summarize(nil, now)
	assert.Zero(t, empty.TotalCount)
	assert.True(t, empty.AverageOrderValue.IsZero())
}

func TestSummarize_ItemlessSaleWithCustomTotalIsSkipped(t *testing.T) {
	// GIVEN: An itemless sale whose custom total would dominate every figure
	history := []sales.Sale{
		sale("s1", "E1", now, "P1", 1, "10"),
		sale("s2", "E1", now, "P1", 1, "30"),
		itemless("e1", "E1", now, "1000"),
	}

	// WHEN: Summarizing
	sum := analytics.Summarize(history, now)

	// THEN: Counts, totals, mean, median and max ignore it
	assert.Equal(t, 2, sum.TotalCount)
	assert.True(t, sum.TotalRevenue.Equal(money("40")))
	assert.True(t, sum.TodayRevenue.Equal(money("40")))
	assert.True(t, sum.AverageOrderValue.Equal(money("20")))
	assert.True(t, sum.MedianOrderValue.Equal(money("20")))
	assert.True(t, sum.LargestOrder.Equal(money("30")))

	only := analytics.Summarize([]sales.Sale{itemless("e2", "E1", now, "9")}, now)
	assert.Zero(t, only.TotalCount)
	assert.True(t, only.TotalRevenue.IsZero())
}

func TestBuild_AggregatesMatchRawRowsWithinTolerance(t *testing.T) {
	// GIVEN: A history with per-line and whole-sale overrides
	// WHEN: Building the full report
	// THEN: Every monetary aggregate agrees with a recomputation from raw rows

	overridden := sale("s2", "E2", now.AddDate(0, 0, -2), "P2", 3, "3.33")
	overridden.CustomTotal = ptr(money("9.99"))
	lined := sales.Sale{
		ID: "s3", EmployeeID: "E1", EmployeeName: "E1", CreatedAt: now,
		Items: []sales.SaleItem{
			{ProductID: "P1", Quantity: 2, UnitPrice: money("1.10")},
			{ProductID: "P2", Quantity: 1, UnitPrice: money("3.33"), CustomPrice: ptr(money("0.01"))},
		},
	}
	lined.TotalAmount = lined.ItemsTotal()
	history := []sales.Sale{sale("s1", "E1", now, "P1", 1, "1.10"), overridden, lined}

	report := analytics.Build(history, analytics.Query{EmployeeID: "E1"}, now)

	raw := decimal.Zero
	for _, s := range history {
		if s.CustomTotal != nil {
			raw = raw.Add(*s.CustomTotal)
			continue
		}
		for _, item := range s.Items {
			raw = raw.Add(item.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	boardTotal := decimal.Zero
	for _, row := range report.Leaderboard {
		boardTotal = boardTotal.Add(row.Revenue)
	}
	trendTotal := decimal.Zero
	for _, p := range report.Trend {
		trendTotal = trendTotal.Add(p.Revenue)
	}

	assert.True(t, sales.WithinTolerance(raw, report.Summary.TotalRevenue))
	assert.True(t, sales.WithinTolerance(raw, boardTotal))
	assert.True(t, sales.WithinTolerance(raw, trendTotal))
	require.NotNil(t, report.Velocity)
	assert.Len(t, report.Trend, analytics.DefaultTrendDays)
	assert.LessOrEqual(t, len(report.Leaderboard), analytics.DashboardLeaderboardSize)
}

func TestForEmployee(t *testing.T) {
	var history []sales.Sale
	for i := 0; i < 7; i++ {
		history = append(history, sale("s"+string(rune('a'+i)), "E1", now.Add(-time.Duration(i)*time.Hour), "P1", 1, "2"))
	}
	history = append(history, sale("other", "E2", now, "P1", 1, "50"))

	dash := analytics.ForEmployee("E1", history, now)

	assert.True(t, dash.TodayTotal.Equal(money("14")))
	assert.Equal(t, 7, dash.TodayOrders)
	assert.True(t, dash.LifetimeTotal.Equal(money("14")))
	require.Len(t, dash.RecentSales, analytics.RecentSalesSize)
	assert.Equal(t, sales.SaleID("sa"), dash.RecentSales[0].ID)
	require.Len(t, dash.TopProducts, 1)
	assert.True(t, dash.TopProducts[0].Revenue.Equal(money("14")))
}

func TestForEmployee_SkipsSalesWithoutItems(t *testing.T) {
	history := []sales.Sale{
		itemless("e1", "E1", now, "500"),
		sale("s1", "E1", now.Add(-time.Hour), "P1", 1, "29"),
	}

	dash := analytics.ForEmployee("E1", history, now)

	assert.Equal(t, 1, dash.TodayOrders)
	assert.True(t, dash.TodayTotal.Equal(money("29")))
	assert.True(t, dash.LifetimeTotal.Equal(money("29")))
	assert.True(t, dash.Velocity.Equal(money("2")))
	require.Len(t, dash.TopProducts, 1)
}
