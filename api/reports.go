package api

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/warp/shop-engine/analytics"
	"github.com/warp/shop-engine/sales"
	"github.com/warp/shop-engine/store/sqlite"
)

// DefaultSummaryListSize is how many closed days GET
// /api/analytics/daily-summaries returns without ?limit.
const DefaultSummaryListSize = 30

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// Analytics builds the leaderboard, trend, top products and, when
// employeeId is given, that employee's velocity. The history is filtered by
// startDate, endDate and employeeId before aggregation.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	filter, err := h.saleFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	q := analytics.Query{EmployeeID: filter.EmployeeID}
	if q.LeaderboardSize, err = queryInt(r, "top", analytics.DashboardLeaderboardSize); err != nil || q.LeaderboardSize < 1 {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	if q.TrendDays, err = queryInt(r, "days", analytics.DefaultTrendDays); err != nil || q.TrendDays < 1 || q.TrendDays > 366 {
		writeError(w, http.StatusBadRequest, "Invalid days", err)
		return
	}

	history, err := h.Store.ListSales(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "Failed to load sales", err)
		return
	}

	report := analytics.Build(history, q, h.clock())
	writeJSON(w, http.StatusOK, AnalyticsResponse{
		Leaderboard: toLeaderboardDTOs(report.Leaderboard),
		Trend:       toTrendDTOs(report.Trend),
		TopProducts: toProductPerformanceDTOs(report.TopProducts),
		Velocity:    optionalAmount(report.Velocity),
		Summary:     toSummaryDTO(report.Summary),
	})
}

// EmployeeDashboard is an employee's own view: today, lifetime, velocity,
// recent sales and best products.
func (h *Handler) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	history, err := h.Store.ListSales(r.Context(), sales.SaleFilter{EmployeeID: emp.ID})
	if err != nil {
		h.internalError(w, r, "Failed to load sales", err)
		return
	}

	d := analytics.ForEmployee(emp.ID, history, h.clock())
	writeJSON(w, http.StatusOK, EmployeeDashboardDTO{
		Employee:      toEmployeeDTO(*emp),
		TodayTotal:    amount(d.TodayTotal),
		TodayOrders:   d.TodayOrders,
		LifetimeTotal: amount(d.LifetimeTotal),
		Velocity:      amount(d.Velocity),
		RecentSales:   toSaleDTOs(d.RecentSales, h.Location),
		TopProducts:   toProductPerformanceDTOs(d.TopProducts),
	})
}

// Dashboard is the administrator overview. Settings, catalog counts and the
// sale history load concurrently.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var (
		settings sqlite.ShopSettings
		counts   sqlite.CatalogCounts
		history  []sales.Sale
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		settings, err = h.Store.ShopSettings(ctx)
		return err
	})
	g.Go(func() (err error) {
		counts, err = h.Store.CountCatalog(ctx)
		return err
	})
	g.Go(func() (err error) {
		history, err = h.Store.ListSales(ctx, sales.SaleFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		h.internalError(w, r, "Failed to load dashboard", err)
		return
	}

	report := analytics.Build(history, analytics.Query{}, h.clock())
	writeJSON(w, http.StatusOK, DashboardResponse{
		ShopName:        settings.Name,
		ActiveEmployees: counts.ActiveEmployees,
		ActiveProducts:  counts.ActiveProducts,
		Leaderboard:     toLeaderboardDTOs(report.Leaderboard),
		Trend:           toTrendDTOs(report.Trend),
		TopProducts:     toProductPerformanceDTOs(report.TopProducts),
		Summary:         toSummaryDTO(report.Summary),
	})
}

// DailySummaries lists closed days written by the summary job.
func (h *Handler) DailySummaries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultSummaryListSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	list, err := h.Store.ListDailySummaries(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, "Failed to list daily summaries", err)
		return
	}

	dtos := make([]DailySummaryDTO, len(list))
	for i, s := range list {
		dtos[i] = toDailySummaryDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}
