/*
commit.go - Sale commit lifecycle

PURPOSE:
  Orchestrates one Commit Sale operation:

  ┌──────────────────────────────────────────────────────────────────┐
  │                                                                  │
  │  CommitRequest ──▶ Validate ──▶ Build Sale ──▶ AppendSale (atomic)│
  │                       │                            │             │
  │                       ▼                            ▼             │
  │                 ValidationError              Receipt + notify    │
  │                                                                  │
  └──────────────────────────────────────────────────────────────────┘

CONCURRENCY:
  The service holds no mutable state. Two commits that reference the same
  employee or product run independently; catalog rows are never locked
  because UnitPrice is snapshotted into the sale. The store serializes only
  the header+items write of each sale.

NO MID-COMMIT ABORT:
  A commit either completes atomically or is rejected before any write.
  Collaborator failures surface as CommitError (ErrCommitFailed).
*/
package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service commits sales.
type Service struct {
	validator *Validator
	store     SaleStore
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
	newID     func() SaleID
}

// Option configures a Service.
type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator overrides sale id generation.
func WithIDGenerator(gen func() SaleID) Option { return func(s *Service) { s.newID = gen } }

// NewService creates a commit service over a catalog and a sale store.
func NewService(catalog Catalog, store SaleStore, opts ...Option) *Service {
	s := &Service{
		validator: &Validator{Catalog: catalog},
		store:     store,
		notifier:  nopNotifier{},
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     func() SaleID { return SaleID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commit validates req and writes the sale. On success it returns the
// persisted sale with the catalog view it was validated against.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*Receipt, error) {
	validated, err := s.validator.Validate(ctx, req)
	if err != nil {
		if IsClientError(err) {
			s.logger.Info("sale rejected",
				zap.String("employee_id", string(req.EmployeeID)),
				zap.String("code", Code(err)),
				zap.Error(err))
		} else {
			s.logger.Error("sale validation failed", zap.Error(err))
		}
		return nil, err
	}

	sale := Sale{
		ID:           s.newID(),
		EmployeeID:   validated.Employee.ID,
		EmployeeName: validated.Employee.Name,
		CreatedAt:    s.now(),
		TotalAmount:  validated.Reconciliation.CalculatedTotal,
		Notes:        req.Notes,
		Items:        validated.Reconciliation.Lines,
	}
	if req.CustomTotal != nil {
		custom := *req.CustomTotal
		sale.CustomTotal = &custom
	}

	if err := s.store.AppendSale(ctx, sale); err != nil {
		s.logger.Error("sale write failed", zap.String("sale_id", string(sale.ID)), zap.Error(err))
		return nil, &CommitError{Stage: "write", Err: err}
	}

	receipt := &Receipt{
		Sale:     sale,
		Employee: validated.Employee,
		Products: validated.Products,
	}

	s.logger.Info("sale committed",
		zap.String("sale_id", string(sale.ID)),
		zap.String("employee_id", string(sale.EmployeeID)),
		zap.Int("items", len(sale.Items)),
		zap.String("total", sale.TotalAmount.StringFixed(2)),
		zap.String("effective", sale.EffectiveAmount().StringFixed(2)))

	s.notifier.SaleCompleted(receipt.Clone())
	return receipt, nil
}
