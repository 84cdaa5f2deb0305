/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates a shop profile, employees and
	products, then records sales through the regular sale engine so every
	stored sale went through validation and reconciliation.

AVAILABLE SCENARIOS:

	corner-cafe:   Three employees, a week of steady sales
	discount-day:  Today's sales with line discounts and whole-sale overrides
	catalog-only:  Catalog with inactive records, no sales

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save shop settings
 3. Create employees and products
 4. Commit sales with back-dated timestamps

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "corner-cafe"}

NOTE:

	Scenarios reset the database. The routes are only mounted when demo
	scenarios are enabled in the configuration.

SEE ALSO:
  - server.go: RouterConfig.EnableScenarios
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/sales"
	"github.com/warp/shop-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

type scenarioLoader func(ctx context.Context, h *Handler, now time.Time) error

var scenarios = []ScenarioDTO{
	{
		ID:          "corner-cafe",
		Name:        "Corner Cafe",
		Description: "Three employees and a week of steady sales",
	},
	{
		ID:          "discount-day",
		Name:        "Discount Day",
		Description: "Line discounts and whole-sale overrides recorded today",
	},
	{
		ID:          "catalog-only",
		Name:        "Catalog Only",
		Description: "Employees and products, including inactive ones, with no sales",
	},
}

var scenarioLoaders = map[string]scenarioLoader{
	"corner-cafe":  loadCornerCafeScenario,
	"discount-day": loadDiscountDayScenario,
	"catalog-only": loadCatalogOnlyScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		h.internalError(w, r, "Failed to reset database", err)
		return
	}
	if err := load(ctx, h, h.clock()); err != nil {
		h.internalError(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.internalError(w, r, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadCornerCafeScenario(ctx context.Context, h *Handler, now time.Time) error {
	b := newScenarioBuilder(ctx, h, now)
	b.settings("Corner Cafe", "+1 555 0100", "12 Market Street")
	alice := b.employee("Alice Moreau", "+1 555 0101", true)
	bob := b.employee("Bob Chen", "+1 555 0102", true)
	carol := b.employee("Carol Diaz", "+1 555 0103", true)
	tea := b.product("Tea", "2.50", "Drinks", true)
	coffee := b.product("Coffee", "3.20", "Drinks", true)
	croissant := b.product("Croissant", "2.80", "Bakery", true)
	sandwich := b.product("Club Sandwich", "7.90", "Food", true)
	juice := b.product("Orange Juice", "4.00", "Drinks", true)
	if b.err != nil {
		return b.err
	}

	staff := []sales.EmployeeID{alice, bob, carol}
	baskets := [][]sales.LineRequest{
		{{ProductID: coffee, Quantity: 2}, {ProductID: croissant, Quantity: 2}},
		{{ProductID: tea, Quantity: 1}},
		{{ProductID: sandwich, Quantity: 1}, {ProductID: juice, Quantity: 1}},
		{{ProductID: coffee, Quantity: 1}},
		{{ProductID: sandwich, Quantity: 2}, {ProductID: coffee, Quantity: 2}, {ProductID: tea, Quantity: 1}},
	}

	// Seven days ending today, busier towards the weekend. Today only has
	// the sales that already happened.
	today := midnight(now)
	n := 0
	for day := 6; day >= 0; day-- {
		start := today.AddDate(0, 0, -day)
		perDay := 3 + (6-day)%4
		for i := 0; i < perDay; i++ {
			at := start.Add(8*time.Hour + time.Duration(i)*95*time.Minute)
			if at.After(now) {
				break
			}
			b.sale(at, staff[n%len(staff)], baskets[n%len(baskets)], nil, "")
			n++
		}
	}
	return b.err
}

func loadDiscountDayScenario(ctx context.Context, h *Handler, now time.Time) error {
	b := newScenarioBuilder(ctx, h, now)
	b.settings("Discount Day Deli", "", "")
	dana := b.employee("Dana Ortiz", "+1 555 0201", true)
	eli := b.employee("Eli Novak", "+1 555 0202", true)
	bagel := b.product("Bagel", "2.00", "Bakery", true)
	soup := b.product("Soup of the Day", "6.50", "Food", true)
	latte := b.product("Latte", "4.50", "Drinks", true)
	if b.err != nil {
		return b.err
	}

	at := func(hours int) time.Time {
		t := midnight(now).Add(time.Duration(hours) * time.Hour)
		if t.After(now) {
			return now
		}
		return t
	}

	// Full price.
	b.sale(at(8), dana, []sales.LineRequest{{ProductID: bagel, Quantity: 3}}, nil, "")
	// Line discount: soup at 5.00 instead of 6.50.
	b.sale(at(9), eli, []sales.LineRequest{
		{ProductID: soup, Quantity: 2, CustomPrice: money("5.00")},
		{ProductID: latte, Quantity: 1},
	}, nil, "staff discount on soup")
	// Whole-sale override: 18.00 charged, 19.50 computed.
	b.sale(at(10), dana, []sales.LineRequest{
		{ProductID: soup, Quantity: 1},
		{ProductID: latte, Quantity: 2},
		{ProductID: bagel, Quantity: 2},
	}, money("18.00"), "rounded down for regular")
	// Free item via a zero line price.
	b.sale(at(11), eli, []sales.LineRequest{
		{ProductID: latte, Quantity: 1},
		{ProductID: bagel, Quantity: 1, CustomPrice: money("0")},
	}, nil, "free bagel with coffee card")
	return b.err
}

func loadCatalogOnlyScenario(ctx context.Context, h *Handler, now time.Time) error {
	b := newScenarioBuilder(ctx, h, now)
	b.settings("New Shop", "", "")
	b.employee("Fatima Khan", "+1 555 0301", true)
	b.employee("George Park", "+1 555 0302", true)
	b.employee("Hana Sato", "+1 555 0303", false)
	b.product("Notebook", "3.75", "Stationery", true)
	b.product("Pen", "1.20", "Stationery", true)
	b.product("Discontinued Stapler", "9.99", "Stationery", false)
	return b.err
}

// =============================================================================
// SCENARIO BUILDER
// =============================================================================

// scenarioBuilder records the first error and turns later calls into no-ops.
// Sales go through a sales.Service whose clock is moved to each sale's
// timestamp.
type scenarioBuilder struct {
	ctx   context.Context
	store *sqlite.Store
	svc   *sales.Service
	at    time.Time
	seq   int
	err   error
}

func newScenarioBuilder(ctx context.Context, h *Handler, now time.Time) *scenarioBuilder {
	b := &scenarioBuilder{ctx: ctx, store: h.Store, at: now}
	b.svc = sales.NewService(h.Store, h.Store, sales.WithClock(func() time.Time { return b.at }))
	return b
}

func (b *scenarioBuilder) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%03d", prefix, b.seq)
}

func (b *scenarioBuilder) settings(name, phone, address string) {
	if b.err != nil {
		return
	}
	_, b.err = b.store.SaveShopSettings(b.ctx, sqlite.ShopSettings{Name: name, Phone: phone, Address: address})
}

func (b *scenarioBuilder) employee(name, mobile string, active bool) sales.EmployeeID {
	id := sales.EmployeeID(b.nextID("emp"))
	if b.err != nil {
		return id
	}
	b.err = b.store.CreateEmployee(b.ctx, sales.Employee{
		ID:       id,
		Name:     name,
		Mobile:   mobile,
		HireDate: midnight(b.at).AddDate(-1, 0, 0),
		Active:   active,
	})
	return id
}

func (b *scenarioBuilder) product(name, price, category string, active bool) sales.ProductID {
	id := sales.ProductID(b.nextID("prod"))
	if b.err != nil {
		return id
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		b.err = err
		return id
	}
	b.err = b.store.CreateProduct(b.ctx, sales.Product{
		ID:       id,
		Name:     name,
		Price:    p,
		Category: category,
		Active:   active,
	})
	return id
}

func (b *scenarioBuilder) sale(at time.Time, emp sales.EmployeeID, items []sales.LineRequest, customTotal *decimal.Decimal, notes string) {
	if b.err != nil {
		return
	}
	b.at = at
	_, err := b.svc.Commit(b.ctx, sales.CommitRequest{
		EmployeeID:  emp,
		Items:       items,
		CustomTotal: customTotal,
		Notes:       notes,
	})
	if err != nil {
		b.err = fmt.Errorf("scenario sale at %s: %w", at.Format(time.RFC3339), err)
	}
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
