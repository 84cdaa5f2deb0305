/*
handlers.go - HTTP API handlers for the shop

PURPOSE:
  Exposes the sale engine, the catalog and the reports via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  sales and analytics packages.

ENDPOINTS:
  Catalog:
    GET    /api/employees                 List employees with sale counts (catalog.go)
    POST   /api/employees                 Create employee
    GET    /api/employees/{id}            Get employee
    PUT    /api/employees/{id}            Update employee
    DELETE /api/employees/{id}            Deactivate employee
    GET    /api/employees/{id}/dashboard  Employee performance view
    (same shape for /api/products, without the dashboard)

  Auth:
    POST   /api/auth/employee-login       Resolve an active employee by mobile

  Sales (sales.go):
    POST   /api/sales                     Commit a sale
    GET    /api/sales                     History with page analytics
    GET    /api/sales/export              CSV export
    GET    /api/sales/{id}                One sale
    DELETE /api/sales/{id}                Remove a sale and its items

  Reports (reports.go):
    GET    /api/analytics                 Leaderboard, trend, top products, velocity
    GET    /api/analytics/daily-summaries Closed-day summaries
    GET    /api/dashboard                 Administrator overview

  Settings:
    GET    /api/shop-settings
    PUT    /api/shop-settings

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with appropriate HTTP status:
  - 400: Validation errors, invalid input, rejected sales
  - 404: Resource not found
  - 409: Conflict (duplicate mobile, SKU or barcode)
  - 429: Rate limited (middleware.go)
  - 500: Internal errors, CommitFailed

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/shop-engine/sales"
	"github.com/warp/shop-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Sales    *sales.Service
	Logger   *zap.Logger
	Location *time.Location

	now func() time.Time

	scenarioMu      sync.Mutex
	currentScenario string
}

// HandlerConfig carries optional handler dependencies. Zero fields take
// defaults: no-op logger, local time zone, wall clock, no notifications.
type HandlerConfig struct {
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
	Notifier sales.Notifier
}

// NewHandler creates a handler over store. The store serves both as the
// sale engine's catalog and as its sale store.
func NewHandler(store *sqlite.Store, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []sales.Option{
		sales.WithLogger(cfg.Logger.Named("sales")),
		sales.WithClock(cfg.Now),
	}
	if cfg.Notifier != nil {
		opts = append(opts, sales.WithNotifier(cfg.Notifier))
	}

	return &Handler{
		Store:    store,
		Sales:    sales.NewService(store, store, opts...),
		Logger:   cfg.Logger,
		Location: cfg.Location,
		now:      cfg.Now,
	}
}

// clock returns the current time in the shop's location.
func (h *Handler) clock() time.Time {
	return h.now().In(h.Location)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee registers a new, active employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	emp, err := employeeFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire date", err)
		return
	}
	emp.ID = sales.EmployeeID(uuid.NewString())
	emp.Active = req.IsActive == nil || *req.IsActive
	emp.CreatedAt = h.now()

	if err := sales.ValidateEmployee(emp); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.Store.CreateEmployee(r.Context(), emp); err != nil {
		h.catalogWriteError(w, r, err)
		return
	}

	h.Logger.Info("employee created", zap.String("employee_id", string(emp.ID)))
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// UpdateEmployee replaces an employee's editable fields.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	var req EmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emp, err := employeeFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire date", err)
		return
	}
	emp.ID = existing.ID
	emp.CreatedAt = existing.CreatedAt
	emp.Active = existing.Active
	if req.IsActive != nil {
		emp.Active = *req.IsActive
	}

	if err := sales.ValidateEmployee(emp); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.Store.UpdateEmployee(r.Context(), emp); err != nil {
		h.catalogWriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// DeactivateEmployee soft-deletes an employee. Their sales are kept.
func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	id := sales.EmployeeID(chi.URLParam(r, "id"))
	if err := h.Store.SetEmployeeActive(r.Context(), id, false); err != nil {
		h.catalogWriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// EmployeeLogin resolves an active employee by mobile number.
func (h *Handler) EmployeeLogin(w http.ResponseWriter, r *http.Request) {
	var req EmployeeLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mobile := strings.TrimSpace(req.Mobile)
	if mobile == "" {
		writeError(w, http.StatusBadRequest, "Mobile number is required", nil)
		return
	}

	emp, err := h.Store.FindEmployeeByMobile(r.Context(), mobile)
	if err != nil {
		h.internalError(w, r, "Failed to look up employee", err)
		return
	}
	if emp == nil || !emp.Active {
		writeError(w, http.StatusNotFound, "Employee not found or inactive", nil)
		return
	}

	h.Logger.Info("employee login", zap.String("employee_id", string(emp.ID)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "employee": toEmployeeDTO(*emp)})
}

func (h *Handler) loadEmployee(w http.ResponseWriter, r *http.Request) (*sales.Employee, bool) {
	id := sales.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "Failed to get employee", err)
		return nil, false
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return nil, false
	}
	return emp, true
}

func employeeFromRequest(req EmployeeRequest) (sales.Employee, error) {
	emp := sales.NormalizeEmployee(sales.Employee{
		Name:    req.Name,
		Mobile:  req.Mobile,
		Email:   req.Email,
		Address: req.Address,
	})
	if hire := strings.TrimSpace(req.HireDate); hire != "" {
		t, err := time.Parse(time.DateOnly, hire)
		if err != nil {
			return emp, err
		}
		emp.HireDate = t
	}
	return emp, nil
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := productFromRequest(req)
	p.ID = sales.ProductID(uuid.NewString())
	p.Active = req.IsActive == nil || *req.IsActive
	p.CreatedAt = h.now()

	if err := sales.ValidateProduct(p); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.Store.CreateProduct(r.Context(), p); err != nil {
		h.catalogWriteError(w, r, err)
		return
	}

	h.Logger.Info("product created", zap.String("product_id", string(p.ID)), zap.String("price", p.Price.String()))
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct replaces a product's editable fields. A price change only
// affects sales committed afterwards.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := productFromRequest(req)
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.Active = existing.Active
	if req.IsActive != nil {
		p.Active = *req.IsActive
	}

	if err := sales.ValidateProduct(p); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.Store.UpdateProduct(r.Context(), p); err != nil {
		h.catalogWriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DeactivateProduct soft-deletes a product so it can no longer be sold.
func (h *Handler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	id := sales.ProductID(chi.URLParam(r, "id"))
	if err := h.Store.SetProductActive(r.Context(), id, false); err != nil {
		h.catalogWriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) loadProduct(w http.ResponseWriter, r *http.Request) (*sales.Product, bool) {
	id := sales.ProductID(chi.URLParam(r, "id"))
	p, err := h.Store.Product(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "Failed to get product", err)
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return nil, false
	}
	return p, true
}

func productFromRequest(req ProductRequest) sales.Product {
	p := sales.Product{
		Name:        req.Name,
		SKU:         req.SKU,
		Barcode:     req.Barcode,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	return sales.NormalizeProduct(p)
}

// =============================================================================
// SHOP SETTINGS HANDLERS
// =============================================================================

// GetShopSettings returns the shop profile.
func (h *Handler) GetShopSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.ShopSettings(r.Context())
	if err != nil {
		h.internalError(w, r, "Failed to load shop settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toShopSettingsDTO(settings))
}

// UpdateShopSettings saves the shop profile.
func (h *Handler) UpdateShopSettings(w http.ResponseWriter, r *http.Request) {
	var req ShopSettingsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Shop name is required", nil)
		return
	}

	saved, err := h.Store.SaveShopSettings(r.Context(), sqlite.ShopSettings{
		Name:    name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		h.internalError(w, r, "Failed to save shop settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toShopSettingsDTO(saved))
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeValidationError reports a field-level rejection as 400.
func writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "Validation failed", Code: sales.Code(err), Details: err.Error()}
	var verr *sales.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Message
		resp.Field = verr.Field
		if verr.Line != sales.NoLine {
			line := verr.Line
			resp.Line = &line
		}
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

func (h *Handler) catalogWriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sales.ErrConflict):
		writeError(w, http.StatusConflict, "Record already exists", err)
	case errors.Is(err, sales.ErrEmployeeNotFound):
		writeError(w, http.StatusNotFound, "Employee not found", nil)
	case errors.Is(err, sales.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found", nil)
	default:
		h.internalError(w, r, "Failed to save record", err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.Logger.Error(message,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, nil)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
