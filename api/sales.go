package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/warp/shop-engine/analytics"
	"github.com/warp/shop-engine/sales"
)

// MaxSaleListLimit caps the page size of GET /api/sales.
const MaxSaleListLimit = 500

// =============================================================================
// SALE HANDLERS
// =============================================================================

// CommitSale validates and records a sale. The response is the stored sale
// with server-computed prices and totals.
func (h *Handler) CommitSale(w http.ResponseWriter, r *http.Request) {
	var req CommitSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := h.Sales.Commit(r.Context(), toCommitRequest(req))
	if err != nil {
		h.writeSaleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSaleDTO(receipt.Sale, h.Location))
}

// ListSales returns sales newest first, with analytics over the returned page.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	filter, err := h.saleFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil || filter.Limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	if filter.Limit > MaxSaleListLimit {
		filter.Limit = MaxSaleListLimit
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil || filter.Offset < 0 {
		writeError(w, http.StatusBadRequest, "Invalid offset", err)
		return
	}

	list, err := h.Store.ListSales(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "Failed to list sales", err)
		return
	}
	total, err := h.Store.CountSales(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "Failed to count sales", err)
		return
	}

	summary := analytics.Summarize(list, h.clock())
	writeJSON(w, http.StatusOK, SaleListResponse{
		Sales:  toSaleDTOs(list, h.Location),
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Analytics: SalesAnalyticsDTO{
			TotalCount:        total,
			TotalRevenue:      amount(summary.TotalRevenue),
			TodayRevenue:      amount(summary.TodayRevenue),
			TopProducts:       toProductPerformanceDTOs(analytics.TopProducts(list, analytics.AdminTopProductsSize)),
			AverageOrderValue: amount(summary.AverageOrderValue),
		},
	})
}

// GetSale returns one sale with its items.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id := sales.SaleID(chi.URLParam(r, "id"))
	sale, err := h.Store.GetSale(r.Context(), id)
	if errors.Is(err, sales.ErrSaleNotFound) {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to get sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale, h.Location))
}

// DeleteSale removes a sale and its items.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id := sales.SaleID(chi.URLParam(r, "id"))
	err := h.Store.DeleteSale(r.Context(), id)
	if errors.Is(err, sales.ErrSaleNotFound) {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to delete sale", err)
		return
	}

	h.Logger.Warn("sale deleted", zap.String("sale_id", string(id)))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// =============================================================================
// CSV EXPORT
// =============================================================================

// saleRow is one exported line. A sale with several items spans several rows
// sharing the sale columns.
type saleRow struct {
	SaleID          string `csv:"sale_id"`
	CreatedAt       string `csv:"created_at"`
	EmployeeID      string `csv:"employee_id"`
	EmployeeName    string `csv:"employee_name"`
	ProductID       string `csv:"product_id"`
	ProductName     string `csv:"product_name"`
	Quantity        int    `csv:"quantity"`
	UnitPrice       string `csv:"unit_price"`
	CustomPrice     string `csv:"custom_price"`
	LineTotal       string `csv:"line_total"`
	TotalAmount     string `csv:"total_amount"`
	CustomTotal     string `csv:"custom_total"`
	EffectiveAmount string `csv:"effective_amount"`
	Notes           string `csv:"notes"`
}

func saleRows(list []sales.Sale, loc *time.Location) []*saleRow {
	var rows []*saleRow
	for _, s := range list {
		base := saleRow{
			SaleID:          string(s.ID),
			CreatedAt:       s.CreatedAt.In(loc).Format(time.RFC3339),
			EmployeeID:      string(s.EmployeeID),
			EmployeeName:    s.EmployeeName,
			TotalAmount:     s.TotalAmount.StringFixed(2),
			EffectiveAmount: s.EffectiveAmount().StringFixed(2),
			Notes:           s.Notes,
		}
		if s.CustomTotal != nil {
			base.CustomTotal = s.CustomTotal.StringFixed(2)
		}
		if len(s.Items) == 0 {
			row := base
			rows = append(rows, &row)
			continue
		}
		for _, item := range s.Items {
			row := base
			row.ProductID = string(item.ProductID)
			row.ProductName = item.ProductName
			row.Quantity = item.Quantity
			row.UnitPrice = item.UnitPrice.StringFixed(2)
			if item.CustomPrice != nil {
				row.CustomPrice = item.CustomPrice.StringFixed(2)
			}
			row.LineTotal = item.LineTotal().StringFixed(2)
			rows = append(rows, &row)
		}
	}
	return rows
}

// ExportSales writes matching sales as CSV, one row per line item.
func (h *Handler) ExportSales(w http.ResponseWriter, r *http.Request) {
	filter, err := h.saleFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	list, err := h.Store.ListSales(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, "Failed to export sales", err)
		return
	}

	filename := fmt.Sprintf("sales-%s.csv", h.clock().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// The header row is written even when nothing matches.
	if err := gocsv.Marshal(saleRows(list, h.Location), w); err != nil {
		h.Logger.Error("sale export failed", zap.Error(err))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func toCommitRequest(req CommitSaleRequest) sales.CommitRequest {
	items := make([]sales.LineRequest, len(req.Items))
	for i, line := range req.Items {
		items[i] = sales.LineRequest{
			ProductID:   sales.ProductID(line.ProductID),
			Quantity:    line.Quantity,
			CustomPrice: line.CustomPrice,
		}
	}
	return sales.CommitRequest{
		EmployeeID:  sales.EmployeeID(req.EmployeeID),
		Items:       items,
		TotalAmount: req.TotalAmount,
		CustomTotal: req.CustomTotal,
		Notes:       req.Notes,
	}
}

// writeSaleError maps the sale error taxonomy to HTTP.
func (h *Handler) writeSaleError(w http.ResponseWriter, r *http.Request, err error) {
	var mismatch *sales.TotalMismatchError
	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Total amount mismatch",
			Code:    sales.Code(err),
			Field:   "totalAmount",
			Details: err.Error(),
		})
	case sales.IsClientError(err):
		writeValidationError(w, err)
	default:
		h.Logger.Error("sale commit failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to record sale",
			Code:  sales.Code(err),
		})
	}
}

// saleFilter reads startDate, endDate (YYYY-MM-DD, shop-local, inclusive)
// and employeeId from the query string.
func (h *Handler) saleFilter(r *http.Request) (sales.SaleFilter, error) {
	var filter sales.SaleFilter
	q := r.URL.Query()

	if v := q.Get("startDate"); v != "" {
		d, err := analytics.ParseDay(v)
		if err != nil {
			return filter, fmt.Errorf("startDate: %w", err)
		}
		from := d.Start(h.Location)
		filter.From = &from
	}
	if v := q.Get("endDate"); v != "" {
		d, err := analytics.ParseDay(v)
		if err != nil {
			return filter, fmt.Errorf("endDate: %w", err)
		}
		_, to := analytics.Period{Start: d, End: d}.Bounds(h.Location)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, errors.New("startDate is after endDate")
	}
	filter.EmployeeID = sales.EmployeeID(q.Get("employeeId"))
	return filter, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
