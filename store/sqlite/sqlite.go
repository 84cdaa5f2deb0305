/*
Package sqlite provides a SQLite-backed implementation of the shop storage.

PURPOSE:
  Implements the sale engine's persistence interfaces on SQLite, plus the
  catalog administration, shop settings and daily summary tables the API
  serves.

INTERFACES IMPLEMENTED:
  sales.Catalog:   Employee and product lookups
  sales.SaleStore: Atomic sale writes and history queries

KEY TABLES:
  employees:       Staff allowed to record sales (soft-deactivated)
  products:        Catalog with authoritative prices (soft-deactivated)
  sales:           One header per committed sale
  sale_items:      Lines of a sale, deleted with their header (ON DELETE CASCADE)
  shop_settings:   Single-row shop profile
  daily_summaries: Revenue per day written by the summary job

APPEND-ONLY SALES:
  There is no UPDATE statement on sales or sale_items. A header and its
  items are inserted inside one SQL transaction; an administrator may
  delete a whole sale, never edit it.

MONEY:
  Decimal amounts are stored as TEXT and parsed with shopspring/decimal,
  so no value ever passes through a float on its way to disk.

TIMESTAMPS:
  Stored as fixed-width UTC text (timeLayout) so that string comparison
  and ORDER BY follow chronological order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.
  Writers hold the write lock for the whole SQL transaction, so a reader
  never observes a sale header without its items.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/shop.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := sales.NewService(store, store)

SEE ALSO:
  - sales/store.go: Interface definitions
  - sales/memstore: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/sales"
)

// timeLayout is RFC 3339 with a fixed nanosecond width, always in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the shop storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var (
	_ sales.Catalog   = (*Store)(nil)
	_ sales.SaleStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Reset deletes all data, keeping the schema. For demo scenarios only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sale_items", "sales", "employees", "products", "shop_settings", "daily_summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mobile TEXT NOT NULL UNIQUE,
		email TEXT,
		address TEXT,
		hire_date TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_active
		ON employees(active);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		sku TEXT UNIQUE,
		barcode TEXT UNIQUE,
		description TEXT,
		category TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_active
		ON products(active);

	-- Sales (append-only headers)
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		total_amount TEXT NOT NULL,
		custom_total TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- History listing, newest first (hot path)
	CREATE INDEX IF NOT EXISTS idx_sales_created_at
		ON sales(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_sales_employee_created
		ON sales(employee_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS sale_items (
		sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		line INTEGER NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price TEXT NOT NULL,
		custom_price TEXT,
		PRIMARY KEY (sale_id, line)
	);

	CREATE INDEX IF NOT EXISTS idx_sale_items_product
		ON sale_items(product_id);

	CREATE TABLE IF NOT EXISTS shop_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL,
		phone TEXT,
		address TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_summaries (
		day TEXT PRIMARY KEY,
		revenue TEXT NOT NULL,
		orders INTEGER NOT NULL,
		top_employee_id TEXT,
		top_employee_name TEXT,
		top_employee_revenue TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools may carry plain RFC 3339
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", s, err)
	}
	return d, nil
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := parseDecimal(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// uniqueColumn names the column of a unique violation. SQLite only reports
// it in the message, as "UNIQUE constraint failed: table.column".
func uniqueColumn(err error) string {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return ""
	}
	msg := sqliteErr.Error()
	if i := strings.LastIndex(msg, "."); i >= 0 {
		return msg[i+1:]
	}
	return ""
}

func rowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
