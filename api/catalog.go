package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/shop-engine/store/sqlite"
)

// MaxCatalogListLimit caps the page size of the catalog listings.
const MaxCatalogListLimit = 500

// =============================================================================
// CATALOG LISTINGS
// =============================================================================

// ListEmployees returns employees with their sale counts and table-wide
// figures.
//
// Query: search (name or mobile), isActive, includeInactive, sortBy
// (name, mobile, hireDate, createdAt), sortOrder (asc, desc), limit, offset.
// Without isActive or includeInactive=true only active employees are listed.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	filter, err := catalogFilter(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	var (
		rows  []sqlite.EmployeeRow
		total int
		stats sqlite.EmployeeStats
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		rows, err = h.Store.ListEmployees(ctx, filter)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.Store.CountEmployees(ctx, filter)
		return err
	})
	g.Go(func() (err error) {
		stats, err = h.Store.EmployeeStats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sqlite.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "Invalid query", err)
			return
		}
		h.internalError(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeListItemDTO, len(rows))
	for i, row := range rows {
		dtos[i] = EmployeeListItemDTO{EmployeeDTO: toEmployeeDTO(row.Employee), SalesCount: row.SalesCount}
	}
	writeJSON(w, http.StatusOK, EmployeeListResponse{
		Employees: dtos,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
		Analytics: EmployeeListAnalyticsDTO{
			TotalCount:    total,
			TotalSales:    stats.ActiveSales,
			ActiveCount:   stats.Active,
			InactiveCount: stats.Inactive,
		},
	})
}

// ListProducts returns products and table-wide price figures.
//
// Query: search (name or description), category, minPrice, maxPrice,
// isActive, includeInactive, sortBy (name, price, category, createdAt),
// sortOrder, limit, offset. Without isActive or includeInactive=true only
// active products are listed.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := catalogFilter(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	var (
		products = make([]ProductDTO, 0)
		total    int
		stats    sqlite.ProductStats
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		list, err := h.Store.ListProducts(ctx, filter)
		for _, p := range list {
			products = append(products, toProductDTO(p))
		}
		return err
	})
	g.Go(func() (err error) {
		total, err = h.Store.CountProducts(ctx, filter)
		return err
	})
	g.Go(func() (err error) {
		stats, err = h.Store.ProductStats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sqlite.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "Invalid query", err)
			return
		}
		h.internalError(w, r, "Failed to list products", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
		Analytics: ProductListAnalyticsDTO{
			TotalCount:    total,
			TotalProducts: stats.Total,
			ActiveCount:   stats.Active,
			InactiveCount: stats.Inactive,
			AvgPrice:      amount(stats.AvgPrice),
			MinPrice:      amount(stats.MinPrice),
			MaxPrice:      amount(stats.MaxPrice),
		},
	})
}

// catalogFilter parses the listing query. Price bounds are only read for
// products.
func catalogFilter(r *http.Request, products bool) (sqlite.CatalogFilter, error) {
	q := r.URL.Query()
	f := sqlite.CatalogFilter{
		Search: strings.TrimSpace(q.Get("search")),
		SortBy: q.Get("sortBy"),
	}

	switch v := q.Get("isActive"); {
	case v != "":
		active, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("isActive: %w", err)
		}
		f.Active = &active
	case !queryBool(r, "includeInactive"):
		f.Active = sqlite.ActiveOnly().Active
	}

	switch strings.ToLower(q.Get("sortOrder")) {
	case "", "asc":
	case "desc":
		f.SortDesc = true
	default:
		return f, fmt.Errorf("sortOrder must be asc or desc")
	}

	var err error
	if f.Limit, err = queryInt(r, "limit", 0); err != nil || f.Limit < 0 {
		return f, fmt.Errorf("limit must be a non-negative integer")
	}
	if f.Limit > MaxCatalogListLimit {
		f.Limit = MaxCatalogListLimit
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil || f.Offset < 0 {
		return f, fmt.Errorf("offset must be a non-negative integer")
	}

	if !products {
		return f, nil
	}
	f.Category = strings.TrimSpace(q.Get("category"))
	if f.MinPrice, err = queryDecimal(r, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(r, "maxPrice"); err != nil {
		return f, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return f, fmt.Errorf("minPrice is greater than maxPrice")
	}
	return f, nil
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d, nil
}
