package sales

import (
	"errors"
	"regexp"
	"strings"
)

// =============================================================================
// CATALOG ADMINISTRATION - Rules for employee and product records
// =============================================================================

var (
	// ErrRecordInvalid marks a catalog record that fails field validation.
	ErrRecordInvalid = errors.New("invalid record")

	// ErrConflict is returned when a unique field (mobile, SKU, barcode)
	// is already taken.
	ErrConflict = errors.New("conflict")

	ErrEmployeeNotFound = errors.New("employee not found")
	ErrProductNotFound  = errors.New("product not found")
)

var mobilePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

// NormalizeEmployee trims the free-text fields of e.
func NormalizeEmployee(e Employee) Employee {
	e.Name = strings.TrimSpace(e.Name)
	e.Mobile = strings.TrimSpace(e.Mobile)
	e.Email = strings.TrimSpace(e.Email)
	e.Address = strings.TrimSpace(e.Address)
	return e
}

// ValidateEmployee checks the fields an employee record must carry.
func ValidateEmployee(e Employee) error {
	if e.Name == "" {
		return &ValidationError{Kind: ErrRecordInvalid, Field: "name", Line: NoLine, Message: "name is required"}
	}
	if e.Mobile == "" {
		return &ValidationError{Kind: ErrRecordInvalid, Field: "mobile", Line: NoLine, Message: "mobile is required"}
	}
	if !mobilePattern.MatchString(e.Mobile) {
		return &ValidationError{Kind: ErrRecordInvalid, Field: "mobile", Line: NoLine, Message: "invalid mobile number format"}
	}
	return nil
}

// NormalizeProduct trims the free-text fields of p.
func NormalizeProduct(p Product) Product {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Barcode = strings.TrimSpace(p.Barcode)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	return p
}

// ValidateProduct checks the fields a product record must carry.
func ValidateProduct(p Product) error {
	if p.Name == "" {
		return &ValidationError{Kind: ErrRecordInvalid, Field: "name", Line: NoLine, Message: "name is required"}
	}
	if !p.Price.IsPositive() {
		return &ValidationError{Kind: ErrRecordInvalid, Field: "price", Line: NoLine, Message: "price must be positive"}
	}
	return nil
}
