/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY ON THE WIRE:
  Requests accept amounts as JSON numbers (or numeric strings) and decode
  them straight into decimal.Decimal, so a client-declared 17.10 is compared
  exactly. Responses emit plain JSON numbers.

VALIDATION:
  Validation is done in handlers and the sales package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - sales/types.go: Domain model
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/analytics"
	"github.com/warp/shop-engine/sales"
	"github.com/warp/shop-engine/store/sqlite"
)

// =============================================================================
// CATALOG
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	HireDate  string `json:"hireDate,omitempty"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// EmployeeRequest creates or updates an employee. HireDate is YYYY-MM-DD.
type EmployeeRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	HireDate string `json:"hireDate"`
	IsActive *bool  `json:"isActive"`
}

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	IsActive    bool    `json:"isActive"`
	SKU         string  `json:"sku,omitempty"`
	Barcode     string  `json:"barcode,omitempty"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// ProductRequest creates or updates a product.
type ProductRequest struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"isActive"`
	SKU         string           `json:"sku"`
	Barcode     string           `json:"barcode"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
}

// EmployeeListItemDTO is an employee listing entry.
type EmployeeListItemDTO struct {
	EmployeeDTO
	SalesCount int `json:"salesCount"`
}

// EmployeeListAnalyticsDTO accompanies an employee listing. TotalCount
// counts the filtered employees; the other figures cover the whole table.
type EmployeeListAnalyticsDTO struct {
	TotalCount    int `json:"totalCount"`
	TotalSales    int `json:"totalSales"`
	ActiveCount   int `json:"activeCount"`
	InactiveCount int `json:"inactiveCount"`
}

// EmployeeListResponse is the body of GET /api/employees.
type EmployeeListResponse struct {
	Employees []EmployeeListItemDTO    `json:"employees"`
	Limit     int                      `json:"limit,omitempty"`
	Offset    int                      `json:"offset"`
	Analytics EmployeeListAnalyticsDTO `json:"analytics"`
}

// ProductListAnalyticsDTO accompanies a product listing. TotalCount counts
// the filtered products; the other figures cover the whole table.
type ProductListAnalyticsDTO struct {
	TotalCount    int     `json:"totalCount"`
	TotalProducts int     `json:"totalProducts"`
	ActiveCount   int     `json:"activeCount"`
	InactiveCount int     `json:"inactiveCount"`
	AvgPrice      float64 `json:"avgPrice"`
	MinPrice      float64 `json:"minPrice"`
	MaxPrice      float64 `json:"maxPrice"`
}

// ProductListResponse is the body of GET /api/products.
type ProductListResponse struct {
	Products  []ProductDTO            `json:"products"`
	Limit     int                     `json:"limit,omitempty"`
	Offset    int                     `json:"offset"`
	Analytics ProductListAnalyticsDTO `json:"analytics"`
}

// EmployeeLoginRequest identifies an employee by mobile number.
type EmployeeLoginRequest struct {
	Mobile string `json:"mobile"`
}

// =============================================================================
// SALES
// =============================================================================

// SaleLineRequest is one requested line of a sale.
type SaleLineRequest struct {
	ProductID   string           `json:"productId"`
	Quantity    int              `json:"quantity"`
	CustomPrice *decimal.Decimal `json:"customPrice"`
}

// CommitSaleRequest is the body of POST /api/sales.
type CommitSaleRequest struct {
	EmployeeID  string            `json:"employeeId"`
	Items       []SaleLineRequest `json:"items"`
	TotalAmount *decimal.Decimal  `json:"totalAmount"`
	CustomTotal *decimal.Decimal  `json:"customTotal"`
	Notes       string            `json:"notes"`
}

// SaleItemDTO is one line of a sale in responses.
type SaleItemDTO struct {
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName,omitempty"`
	Quantity    int      `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	CustomPrice *float64 `json:"customPrice,omitempty"`
	LineTotal   float64  `json:"lineTotal"`
}

// SaleDTO represents a committed sale.
type SaleDTO struct {
	ID              string        `json:"id"`
	EmployeeID      string        `json:"employeeId"`
	EmployeeName    string        `json:"employeeName,omitempty"`
	Items           []SaleItemDTO `json:"items"`
	TotalAmount     float64       `json:"totalAmount"`
	CustomTotal     *float64      `json:"customTotal,omitempty"`
	EffectiveAmount float64       `json:"effectiveAmount"`
	Notes           string        `json:"notes,omitempty"`
	CreatedAt       string        `json:"createdAt"`
}

// SalesAnalyticsDTO accompanies a sale listing.
type SalesAnalyticsDTO struct {
	TotalCount        int                     `json:"totalCount"`
	TotalRevenue      float64                 `json:"totalRevenue"`
	TodayRevenue      float64                 `json:"todayRevenue"`
	TopProducts       []ProductPerformanceDTO `json:"topProducts"`
	AverageOrderValue float64                 `json:"averageOrderValue"`
}

// SaleListResponse is the body of GET /api/sales.
type SaleListResponse struct {
	Sales     []SaleDTO         `json:"sales"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset"`
	Analytics SalesAnalyticsDTO `json:"analytics"`
}

// =============================================================================
// ANALYTICS
// =============================================================================

type LeaderboardEntryDTO struct {
	EmployeeID string  `json:"employeeId"`
	Name       string  `json:"name"`
	Revenue    float64 `json:"revenue"`
	Orders     int     `json:"orders"`
}

type TrendPointDTO struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type ProductPerformanceDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

type SummaryDTO struct {
	TotalCount        int     `json:"totalCount"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TodayRevenue      float64 `json:"todayRevenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	MedianOrderValue  float64 `json:"medianOrderValue"`
	LargestOrder      float64 `json:"largestOrder"`
}

// AnalyticsResponse is the body of GET /api/analytics.
type AnalyticsResponse struct {
	Leaderboard []LeaderboardEntryDTO   `json:"leaderboard"`
	Trend       []TrendPointDTO         `json:"trend"`
	TopProducts []ProductPerformanceDTO `json:"topProducts"`
	Velocity    *float64                `json:"velocity,omitempty"`
	Summary     SummaryDTO              `json:"summary"`
}

// EmployeeDashboardDTO is an employee's own performance view.
type EmployeeDashboardDTO struct {
	Employee      EmployeeDTO             `json:"employee"`
	TodayTotal    float64                 `json:"todayTotal"`
	TodayOrders   int                     `json:"todayOrders"`
	LifetimeTotal float64                 `json:"lifetimeTotal"`
	Velocity      float64                 `json:"velocity"`
	RecentSales   []SaleDTO               `json:"recentSales"`
	TopProducts   []ProductPerformanceDTO `json:"topProducts"`
}

// DashboardResponse is the administrator overview.
type DashboardResponse struct {
	ShopName        string                  `json:"shopName"`
	ActiveEmployees int                     `json:"activeEmployees"`
	ActiveProducts  int                     `json:"activeProducts"`
	Leaderboard     []LeaderboardEntryDTO   `json:"leaderboard"`
	Trend           []TrendPointDTO         `json:"trend"`
	TopProducts     []ProductPerformanceDTO `json:"topProducts"`
	Summary         SummaryDTO              `json:"summary"`
}

// DailySummaryDTO is one closed day.
type DailySummaryDTO struct {
	Day                string  `json:"day"`
	Revenue            float64 `json:"revenue"`
	Orders             int     `json:"orders"`
	TopEmployeeID      string  `json:"topEmployeeId,omitempty"`
	TopEmployeeName    string  `json:"topEmployeeName,omitempty"`
	TopEmployeeRevenue float64 `json:"topEmployeeRevenue"`
}

// =============================================================================
// SHOP SETTINGS
// =============================================================================

type ShopSettingsDTO struct {
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Field      string `json:"field,omitempty"`
	Line       *int   `json:"line,omitempty"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func optionalAmount(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toEmployeeDTO(e sales.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Mobile:    e.Mobile,
		Email:     e.Email,
		Address:   e.Address,
		IsActive:  e.Active,
		CreatedAt: formatTimestamp(e.CreatedAt),
	}
	if !e.HireDate.IsZero() {
		dto.HireDate = e.HireDate.Format(time.DateOnly)
	}
	return dto
}

func toProductDTO(p sales.Product) ProductDTO {
	return ProductDTO{
		ID:          string(p.ID),
		Name:        p.Name,
		Price:       amount(p.Price),
		IsActive:    p.Active,
		SKU:         p.SKU,
		Barcode:     p.Barcode,
		Description: p.Description,
		Category:    p.Category,
		CreatedAt:   formatTimestamp(p.CreatedAt),
	}
}

func toSaleDTO(s sales.Sale, loc *time.Location) SaleDTO {
	items := make([]SaleItemDTO, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItemDTO{
			ProductID:   string(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   amount(item.UnitPrice),
			CustomPrice: optionalAmount(item.CustomPrice),
			LineTotal:   amount(item.LineTotal()),
		}
	}
	return SaleDTO{
		ID:              string(s.ID),
		EmployeeID:      string(s.EmployeeID),
		EmployeeName:    s.EmployeeName,
		Items:           items,
		TotalAmount:     amount(s.TotalAmount),
		CustomTotal:     optionalAmount(s.CustomTotal),
		EffectiveAmount: amount(s.EffectiveAmount()),
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt.In(loc).Format(time.RFC3339),
	}
}

func toSaleDTOs(list []sales.Sale, loc *time.Location) []SaleDTO {
	dtos := make([]SaleDTO, len(list))
	for i, s := range list {
		dtos[i] = toSaleDTO(s, loc)
	}
	return dtos
}

func toLeaderboardDTOs(rows []analytics.EmployeePerformance) []LeaderboardEntryDTO {
	dtos := make([]LeaderboardEntryDTO, len(rows))
	for i, r := range rows {
		dtos[i] = LeaderboardEntryDTO{
			EmployeeID: string(r.EmployeeID),
			Name:       r.Name,
			Revenue:    amount(r.Revenue),
			Orders:     r.Orders,
		}
	}
	return dtos
}

func toTrendDTOs(points []analytics.DayRevenue) []TrendPointDTO {
	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = TrendPointDTO{Date: p.Date.String(), Revenue: amount(p.Revenue), Orders: p.Orders}
	}
	return dtos
}

func toProductPerformanceDTOs(rows []analytics.ProductPerformance) []ProductPerformanceDTO {
	dtos := make([]ProductPerformanceDTO, len(rows))
	for i, r := range rows {
		dtos[i] = ProductPerformanceDTO{
			ProductID: string(r.ProductID),
			Name:      r.Name,
			Quantity:  r.Quantity,
			Revenue:   amount(r.Revenue),
		}
	}
	return dtos
}

func toSummaryDTO(s analytics.Summary) SummaryDTO {
	return SummaryDTO{
		TotalCount:        s.TotalCount,
		TotalRevenue:      amount(s.TotalRevenue),
		TodayRevenue:      amount(s.TodayRevenue),
		AverageOrderValue: amount(s.AverageOrderValue),
		MedianOrderValue:  amount(s.MedianOrderValue),
		LargestOrder:      amount(s.LargestOrder),
	}
}

func toShopSettingsDTO(s sqlite.ShopSettings) ShopSettingsDTO {
	return ShopSettingsDTO{
		Name:      s.Name,
		Phone:     s.Phone,
		Address:   s.Address,
		UpdatedAt: formatTimestamp(s.UpdatedAt),
	}
}

func toDailySummaryDTO(s sqlite.DailySummary) DailySummaryDTO {
	return DailySummaryDTO{
		Day:                s.Day,
		Revenue:            amount(s.Revenue),
		Orders:             s.Orders,
		TopEmployeeID:      s.TopEmployeeID,
		TopEmployeeName:    s.TopEmployeeName,
		TopEmployeeRevenue: amount(s.TopEmployeeRevenue),
	}
}
