package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidFilter is returned for a listing filter the store cannot run,
// such as an unknown sort field.
var ErrInvalidFilter = errors.New("invalid filter")

// CatalogFilter narrows an employee or product listing. The zero value lists
// everything, active or not, ordered by name.
type CatalogFilter struct {
	// Active restricts to active (true) or inactive (false) records.
	Active *bool
	// Search is a case-insensitive substring match.
	Search string

	// Products only.
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal

	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

var employeeSortColumns = map[string]string{
	"name":      "name",
	"mobile":    "mobile",
	"hireDate":  "hire_date",
	"createdAt": "created_at",
}

var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "CAST(price AS REAL)",
	"category":  "category",
	"createdAt": "created_at",
}

// ActiveOnly returns a filter listing active records, the default for the
// till.
func ActiveOnly() CatalogFilter {
	active := true
	return CatalogFilter{Active: &active}
}

func (f CatalogFilter) employeeWhere() (string, []any) {
	var w whereBuilder
	f.commonWhere(&w, "mobile")
	return w.clause(), w.args
}

func (f CatalogFilter) productWhere() (string, []any) {
	var w whereBuilder
	f.commonWhere(&w, "description")
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.MinPrice != nil {
		w.add("CAST(price AS REAL) >= ?", f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		w.add("CAST(price AS REAL) <= ?", f.MaxPrice.InexactFloat64())
	}
	return w.clause(), w.args
}

func (f CatalogFilter) commonWhere(w *whereBuilder, searchColumn string) {
	if f.Active != nil {
		w.add("active = ?", *f.Active)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := likePattern(search)
		w.add("(name LIKE ? ESCAPE '\\' OR "+searchColumn+" LIKE ? ESCAPE '\\')", pattern, pattern)
	}
}

// orderBy resolves SortBy against the allowed columns. id breaks ties so
// paging is stable.
func (f CatalogFilter) orderBy(columns map[string]string) (string, error) {
	by := f.SortBy
	if by == "" {
		by = "name"
	}
	col, ok := columns[by]
	if !ok {
		return "", fmt.Errorf("%w: cannot sort by %q", ErrInvalidFilter, by)
	}
	dir := " ASC"
	if f.SortDesc {
		dir = " DESC"
	}
	return " ORDER BY " + col + dir + ", id" + dir, nil
}

func (f CatalogFilter) page() (string, []any) {
	return pageClause(f.Limit, f.Offset)
}

func pageClause(limit, offset int) (string, []any) {
	var (
		clause string
		args   []any
	)
	if limit > 0 {
		clause += " LIMIT ?"
		args = append(args, limit)
	} else if offset > 0 {
		clause += " LIMIT -1"
	}
	if offset > 0 {
		clause += " OFFSET ?"
		args = append(args, offset)
	}
	return clause, args
}

type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// likePattern wraps s for a substring LIKE, escaping its wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
