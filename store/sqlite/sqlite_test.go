package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/sales"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

var base = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.CreateEmployee(ctx, sales.Employee{ID: "E1", Name: "Alice", Mobile: "0100", Active: true}))
	require.NoError(t, store.CreateEmployee(ctx, sales.Employee{ID: "E2", Name: "Bob", Mobile: "0200", Active: true}))
	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P1", Name: "Tea", Price: money("4"), Active: true, SKU: "TEA"}))
	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P2", Name: "Cake", Price: money("8"), Active: true}))
	return store
}

func testSale(id string, emp sales.EmployeeID, at time.Time) sales.Sale {
	s := sales.Sale{
		ID:         sales.SaleID(id),
		EmployeeID: emp,
		CreatedAt:  at,
		Items: []sales.SaleItem{
			{ProductID: "P1", Quantity: 3, UnitPrice: money("4")},
			{ProductID: "P2", Quantity: 1, UnitPrice: money("8"), CustomPrice: ptr(money("5"))},
		},
	}
	s.TotalAmount = s.ItemsTotal()
	return s
}

// =============================================================================
// CATALOG
// =============================================================================

func TestEmployees_CreateFindUpdateDeactivate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	hire := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateEmployee(ctx, sales.Employee{
		ID: "E3", Name: "Carol", Mobile: "+1 555", Email: "c@example.com", HireDate: hire, Active: true,
	}))

	got, err := store.Employee(ctx, "E3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c@example.com", got.Email)
	assert.True(t, got.HireDate.Equal(hire))
	assert.False(t, got.CreatedAt.IsZero())

	byMobile, err := store.FindEmployeeByMobile(ctx, "+1 555")
	require.NoError(t, err)
	require.NotNil(t, byMobile)
	assert.Equal(t, sales.EmployeeID("E3"), byMobile.ID)

	got.Name = "Caroline"
	require.NoError(t, store.UpdateEmployee(ctx, *got))
	require.NoError(t, store.SetEmployeeActive(ctx, "E3", false))

	got, err = store.Employee(ctx, "E3")
	require.NoError(t, err)
	assert.Equal(t, "Caroline", got.Name)
	assert.False(t, got.Active)

	active, err := store.ListEmployees(ctx, ActiveOnly())
	require.NoError(t, err)
	assert.Len(t, active, 2)
	all, err := store.ListEmployees(ctx, CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	missing, err := store.Employee(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, store.SetEmployeeActive(ctx, "nobody", true), sales.ErrEmployeeNotFound)
}

func TestCatalog_UniqueFieldsConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.CreateEmployee(ctx, sales.Employee{ID: "E9", Name: "Dup", Mobile: "0100", Active: true})
	assert.ErrorIs(t, err, sales.ErrConflict)
	assert.Contains(t, err.Error(), "mobile")

	err = store.CreateProduct(ctx, sales.Product{ID: "P9", Name: "Dup", Price: money("1"), SKU: "TEA"})
	assert.ErrorIs(t, err, sales.ErrConflict)

	// empty SKUs are stored as NULL and never collide
	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P10", Name: "A", Price: money("1")}))
	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P11", Name: "B", Price: money("1")}))
}

func TestListEmployees_SearchSortPageAndSalesCount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// GIVEN: A third, inactive employee and sales for everyone
	require.NoError(t, store.CreateEmployee(ctx, sales.Employee{ID: "E3", Name: "Carol", Mobile: "0300", Active: false}))
	require.NoError(t, store.AppendSale(ctx, testSale("s1", "E1", base)))
	require.NoError(t, store.AppendSale(ctx, testSale("s2", "E1", base.Add(time.Hour))))
	require.NoError(t, store.AppendSale(ctx, testSale("s3", "E2", base)))
	require.NoError(t, store.AppendSale(ctx, testSale("s4", "E3", base)))

	names := func(rows []EmployeeRow) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Name
		}
		return out
	}

	// WHEN: Listing everyone
	all, err := store.ListEmployees(ctx, CatalogFilter{})
	require.NoError(t, err)

	// THEN: Ordered by name with their sale counts
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(all))
	assert.Equal(t, []int{2, 1, 1}, []int{all[0].SalesCount, all[1].SalesCount, all[2].SalesCount})

	// Search covers name (any case) and mobile
	byName, err := store.ListEmployees(ctx, CatalogFilter{Search: "AL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names(byName))
	byMobile, err := store.ListEmployees(ctx, CatalogFilter{Search: "0200"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, names(byMobile))

	// Sorting and paging
	page, err := store.ListEmployees(ctx, CatalogFilter{SortBy: "name", SortDesc: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, names(page))
	tail, err := store.ListEmployees(ctx, CatalogFilter{Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol"}, names(tail))

	inactive := false
	n, err := store.CountEmployees(ctx, CatalogFilter{Active: &inactive, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.ListEmployees(ctx, CatalogFilter{SortBy: "salary"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	// Table-wide figures ignore the filter; sales by inactive staff are excluded
	stats, err := store.EmployeeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, EmployeeStats{Total: 3, Active: 2, Inactive: 1, ActiveSales: 3}, stats)
}

func TestListProducts_FiltersSortAndPaging(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// GIVEN: Tea 4 and Cake 8, plus four more products
	for _, p := range []sales.Product{
		{ID: "P3", Name: "Green Tea", Price: money("2.50"), Category: "Drinks", Active: true},
		{ID: "P4", Name: "Teapot", Price: money("25"), Category: "Kitchen", Active: false},
		{ID: "P5", Name: "Scone", Price: money("3"), Category: "Bakery", Description: "best with TEA", Active: true},
		{ID: "P6", Name: "50% Sale", Price: money("1"), Active: true},
	} {
		require.NoError(t, store.CreateProduct(ctx, p))
	}

	ids := func(f CatalogFilter) []sales.ProductID {
		t.Helper()
		list, err := store.ListProducts(ctx, f)
		require.NoError(t, err)
		out := make([]sales.ProductID, len(list))
		for i, p := range list {
			out[i] = p.ID
		}
		return out
	}

	// Search covers name and description, any case
	assert.Equal(t, []sales.ProductID{"P3", "P5", "P1", "P4"}, ids(CatalogFilter{Search: "tea"}))
	active := true
	assert.Equal(t, []sales.ProductID{"P3", "P5", "P1"}, ids(CatalogFilter{Search: "tea", Active: &active}))
	// LIKE wildcards in the search are literal
	assert.Equal(t, []sales.ProductID{"P6"}, ids(CatalogFilter{Search: "%"}))

	assert.Equal(t, []sales.ProductID{"P3"}, ids(CatalogFilter{Category: "Drinks"}))
	// Price bounds are inclusive
	assert.Equal(t, []sales.ProductID{"P2", "P5", "P1"}, ids(CatalogFilter{MinPrice: ptr(money("3")), MaxPrice: ptr(money("8"))}))

	// Price sorts numerically, not as text
	assert.Equal(t, []sales.ProductID{"P4", "P2", "P1", "P5", "P3", "P6"}, ids(CatalogFilter{SortBy: "price", SortDesc: true}))
	assert.Equal(t, []sales.ProductID{"P2", "P1"}, ids(CatalogFilter{SortBy: "price", SortDesc: true, Limit: 2, Offset: 1}))

	n, err := store.CountProducts(ctx, CatalogFilter{Search: "tea", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = store.ListProducts(ctx, CatalogFilter{SortBy: "price; DROP TABLE products"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	stats, err := store.ProductStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 5, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, "7.25", stats.AvgPrice.String())
	assert.Equal(t, "1", stats.MinPrice.String())
	assert.Equal(t, "25", stats.MaxPrice.String())
}

func TestProductStats_EmptyCatalog(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stats, err := store.ProductStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.True(t, stats.AvgPrice.IsZero())
	assert.True(t, stats.MinPrice.IsZero())
}

func TestProducts_PriceRoundTripsExactly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P3", Name: "Odd", Price: money("0.1"), Active: true}))
	p, err := store.Product(ctx, "P3")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(money("0.1")))

	p.Price = money("19.99")
	require.NoError(t, store.UpdateProduct(ctx, *p))
	require.NoError(t, store.SetProductActive(ctx, "P3", false))

	p, err = store.Product(ctx, "P3")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(money("19.99")))
	assert.False(t, p.Active)

	counts, err := store.CountCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, CatalogCounts{ActiveEmployees: 2, ActiveProducts: 2}, counts)
}

// =============================================================================
// SALES
// =============================================================================

func TestAppendSale_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sale := testSale("s1", "E1", base)
	sale.CustomTotal = ptr(money("15"))
	sale.Notes = "walk-in"
	require.NoError(t, store.AppendSale(ctx, sale))

	got, err := store.GetSale(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.EmployeeName)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.True(t, got.TotalAmount.Equal(money("17")))
	assert.True(t, got.EffectiveAmount().Equal(money("15")))
	assert.Equal(t, "walk-in", got.Notes)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Tea", got.Items[0].ProductName)
	assert.Nil(t, got.Items[0].CustomPrice)
	require.NotNil(t, got.Items[1].CustomPrice)
	assert.True(t, got.Items[1].CustomPrice.Equal(money("5")))
	assert.True(t, got.TotalAmount.Equal(got.ItemsTotal()))

	_, err = store.GetSale(ctx, "nope")
	assert.ErrorIs(t, err, sales.ErrSaleNotFound)
}

func TestAppendSale_IsAtomic(t *testing.T) {
	// GIVEN: A sale whose second item references an unknown product
	// WHEN: Appending it
	// THEN: The foreign key fails the transaction and the header is not kept

	ctx := context.Background()
	store := newTestStore(t)

	bad := testSale("s1", "E1", base)
	bad.Items[1].ProductID = "ghost"

	require.Error(t, store.AppendSale(ctx, bad))

	n, err := store.CountSales(ctx, sales.SaleFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppendSale_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.AppendSale(ctx, testSale("s1", "E1", base)))
	assert.ErrorIs(t, store.AppendSale(ctx, testSale("s1", "E2", base)), sales.ErrDuplicateSale)
}

func TestConstraintErrors_OnlyUniqueViolationsAreConflicts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// GIVEN: A primary key collision on the catalog
	err := store.CreateEmployee(ctx, sales.Employee{ID: "E1", Name: "Again", Mobile: "0999", Active: true})

	// THEN: It is a conflict naming the column
	assert.ErrorIs(t, err, sales.ErrConflict)
	assert.Contains(t, err.Error(), "id")

	// GIVEN: A sale whose employee does not exist (foreign key)
	orphan := testSale("s-orphan", "ghost", base)

	// THEN: It fails, but not as a duplicate sale
	err = store.AppendSale(ctx, orphan)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sales.ErrDuplicateSale)

	// GIVEN: A line breaking the quantity check
	zero := testSale("s-zero", "E1", base)
	zero.Items[0].Quantity = 0
	err = store.AppendSale(ctx, zero)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sales.ErrDuplicateSale)

	assert.False(t, isUniqueConstraintError(nil))
	assert.False(t, isUniqueConstraintError(fmt.Errorf("UNIQUE constraint failed: employees.mobile")),
		"only driver errors are classified")
}

func TestListSales_FilterOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 6; i++ {
		emp := sales.EmployeeID("E1")
		if i%2 == 1 {
			emp = "E2"
		}
		require.NoError(t, store.AppendSale(ctx, testSale(fmt.Sprintf("s%d", i), emp, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := store.ListSales(ctx, sales.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, sales.SaleID("s5"), all[0].ID, "newest first")

	from, to := base.Add(time.Hour), base.Add(3*time.Hour)
	windowed, err := store.ListSales(ctx, sales.SaleFilter{From: &from, To: &to, EmployeeID: "E1"})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, sales.SaleID("s2"), windowed[0].ID)

	page, err := store.ListSales(ctx, sales.SaleFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, sales.SaleID("s4"), page[0].ID)
	assert.Len(t, page[1].Items, 2)

	tail, err := store.ListSales(ctx, sales.SaleFilter{Offset: 4})
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	n, err := store.CountSales(ctx, sales.SaleFilter{EmployeeID: "E2", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteSale_CascadesItems(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.AppendSale(ctx, testSale("s1", "E1", base)))

	require.NoError(t, store.DeleteSale(ctx, "s1"))
	assert.ErrorIs(t, store.DeleteSale(ctx, "s1"), sales.ErrSaleNotFound)

	var items int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM sale_items").Scan(&items))
	assert.Zero(t, items)
}

func TestStore_DrivesSaleService(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := sales.NewService(store, store)

	receipt, err := svc.Commit(ctx, sales.CommitRequest{
		EmployeeID:  "E1",
		Items:       []sales.LineRequest{{ProductID: "P1", Quantity: 3}, {ProductID: "P2", Quantity: 1, CustomPrice: ptr(money("5"))}},
		TotalAmount: ptr(money("17")),
	})
	require.NoError(t, err)

	stored, err := store.GetSale(ctx, receipt.Sale.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(money("17")))

	require.NoError(t, store.SetProductActive(ctx, "P2", false))
	_, err = svc.Commit(ctx, sales.CommitRequest{
		EmployeeID: "E1",
		Items:      []sales.LineRequest{{ProductID: "P2", Quantity: 1}},
	})
	assert.ErrorIs(t, err, sales.ErrProductInvalid)

	n, err := store.CountSales(ctx, sales.SaleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendSale_ConcurrentWritersOnFileDB(t *testing.T) {
	ctx := context.Background()
	store, err := New(filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateEmployee(ctx, sales.Employee{ID: "E1", Name: "Alice", Mobile: "0100", Active: true}))
	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P1", Name: "Tea", Price: money("4"), Active: true}))
	require.NoError(t, store.CreateProduct(ctx, sales.Product{ID: "P2", Name: "Cake", Price: money("8"), Active: true}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.AppendSale(ctx, testSale(fmt.Sprintf("s%02d", i), "E1", base.Add(time.Duration(i)*time.Minute))))
		}(i)
	}
	wg.Wait()

	list, err := store.ListSales(ctx, sales.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, list, 20)
	for _, s := range list {
		assert.Len(t, s.Items, 2)
	}
}

// =============================================================================
// SETTINGS & SUMMARIES
// =============================================================================

func TestShopSettings_DefaultThenSaved(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	settings, err := store.ShopSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultShopName, settings.Name)

	_, err = store.SaveShopSettings(ctx, ShopSettings{Name: "Corner Cafe", Phone: "0300"})
	require.NoError(t, err)

	settings, err = store.ShopSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Corner Cafe", settings.Name)
	assert.Equal(t, "0300", settings.Phone)
	assert.False(t, settings.UpdatedAt.IsZero())
}

func TestDailySummaries_UpsertAndOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SaveDailySummary(ctx, DailySummary{Day: "2025-03-08", Revenue: money("10"), Orders: 1, TopEmployeeRevenue: money("10")}))
	require.NoError(t, store.SaveDailySummary(ctx, DailySummary{Day: "2025-03-09", Revenue: money("5"), Orders: 1, TopEmployeeRevenue: money("5")}))
	require.NoError(t, store.SaveDailySummary(ctx, DailySummary{
		Day: "2025-03-09", Revenue: money("25.50"), Orders: 3,
		TopEmployeeID: "E1", TopEmployeeName: "Alice", TopEmployeeRevenue: money("20"),
	}))

	list, err := store.ListDailySummaries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025-03-09", list[0].Day)
	assert.True(t, list[0].Revenue.Equal(money("25.50")))
	assert.Equal(t, "Alice", list[0].TopEmployeeName)

	limited, err := store.ListDailySummaries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReset_ClearsDataKeepsSchema(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.AppendSale(ctx, testSale("S1", "E1", base)))

	require.NoError(t, store.Reset(ctx))

	n, err := store.CountSales(ctx, sales.SaleFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	employees, err := store.ListEmployees(ctx, CatalogFilter{})
	require.NoError(t, err)
	assert.Empty(t, employees)

	// The schema survives, so the catalog can be rebuilt.
	require.NoError(t, store.CreateEmployee(ctx, sales.Employee{ID: "E1", Name: "Alice", Mobile: "0100", Active: true}))
}
