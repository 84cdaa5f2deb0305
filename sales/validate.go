package sales

import (
	"context"
	"strconv"
)

// =============================================================================
// CATALOG - Read access to live employee/product state
// =============================================================================

// Catalog resolves current catalog records. Both methods return (nil, nil)
// when the record does not exist; a non-nil error means the lookup itself
// failed.
type Catalog interface {
	Employee(ctx context.Context, id EmployeeID) (*Employee, error)
	Product(ctx context.Context, id ProductID) (*Product, error)
}

// =============================================================================
// VALIDATOR - Rejects before any write occurs
// =============================================================================

// ValidatedSale is a request that passed every check, with the catalog state
// it was checked against.
type ValidatedSale struct {
	Request        CommitRequest
	Employee       Employee
	Products       map[ProductID]Product
	Reconciliation Reconciliation
}

// Validator enforces the business rules of a sale. The first failure
// short-circuits; nothing is written by the validator.
type Validator struct {
	Catalog Catalog
}

// CheckStructure validates the request shape without touching the catalog.
func CheckStructure(req CommitRequest) error {
	if req.EmployeeID == "" {
		return &ValidationError{Kind: ErrEmployeeInvalid, Field: "employeeId", Line: NoLine, Message: "employee id is required"}
	}
	if len(req.Items) == 0 {
		return &ValidationError{Kind: ErrEmptyOrder, Field: "items", Line: NoLine, Message: "at least one item is required"}
	}
	for i, line := range req.Items {
		if line.ProductID == "" {
			return &ValidationError{Kind: ErrItemInvalid, Field: "productId", Line: i, Message: "product id is required"}
		}
		if line.Quantity <= 0 {
			return &ValidationError{Kind: ErrItemInvalid, Field: "quantity", Line: i,
				Message: "quantity must be positive, got " + strconv.Itoa(line.Quantity)}
		}
		if line.CustomPrice != nil && line.CustomPrice.IsNegative() {
			return &ValidationError{Kind: ErrItemInvalid, Field: "customPrice", Line: i, Message: "custom price cannot be negative"}
		}
	}
	return nil
}

// Validate runs every check in order: structure, employee, products (per
// line), then the declared total.
func (v *Validator) Validate(ctx context.Context, req CommitRequest) (*ValidatedSale, error) {
	if err := CheckStructure(req); err != nil {
		return nil, err
	}

	employee, err := v.Catalog.Employee(ctx, req.EmployeeID)
	if err != nil {
		return nil, &CommitError{Stage: "employee lookup", Err: err}
	}
	if employee == nil || !employee.Active {
		return nil, &ValidationError{
			Kind:    ErrEmployeeInvalid,
			Field:   "employeeId",
			Line:    NoLine,
			Message: "invalid or inactive employee " + string(req.EmployeeID),
		}
	}

	products := make(map[ProductID]Product, len(req.Items))
	for i, line := range req.Items {
		if _, seen := products[line.ProductID]; seen {
			continue
		}
		product, err := v.Catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, &CommitError{Stage: "product lookup", Err: err}
		}
		if product == nil || !product.Active {
			return nil, &ValidationError{
				Kind:    ErrProductInvalid,
				Field:   "productId",
				Line:    i,
				Message: "product " + string(line.ProductID) + " not found or inactive",
			}
		}
		products[line.ProductID] = *product
	}

	rec, err := Reconcile(req.Items, products)
	if err != nil {
		return nil, err
	}
	if err := CheckDeclaredTotal(req.TotalAmount, rec.CalculatedTotal); err != nil {
		return nil, err
	}

	return &ValidatedSale{
		Request:        req,
		Employee:       *employee,
		Products:       products,
		Reconciliation: rec,
	}, nil
}
