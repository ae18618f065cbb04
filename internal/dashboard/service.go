package dashboard

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
)

// Filter narrows the admin read path. Empty fields match everything.
type Filter struct {
	CompanyID  string
	CostCenter string
}

type Repository interface {
	// ListByOwner returns one owner's expenses in a company.
	ListByOwner(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error)
	// ListSince returns every owner's expenses dated on or after since.
	ListSince(ctx context.Context, since time.Time, f Filter) ([]*expense.Expense, error)
}

type Service struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		timeout: errors.DefaultStoreTimeout,
		now:     time.Now,
	}
}

func (s *Service) withDefaults(q Query) (Query, error) {
	now := s.now()
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month == 0 {
		q.Month = now.Month()
	}
	if q.Month < time.January || q.Month > time.December {
		return q, errors.NewValidationFieldError("month", "month must be between 1 and 12", errors.ErrCodeValidationFailed)
	}
	return q, nil
}

// Personal summarizes the caller's own expenses in companyID.
func (s *Service) Personal(ctx context.Context, ownerID int64, companyID string, q Query) (*Summary, error) {
	if companyID == "" {
		return nil, errors.ErrNoCompanySelected
	}
	q, err := s.withDefaults(q)
	if err != nil {
		return nil, err
	}
	q.OwnerID = ownerID

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repo.ListByOwner(ctx, ownerID, companyID)
	if err != nil {
		s.logger.Error("failed to load dashboard expenses", "error", err, "owner_id", ownerID)
		return nil, errors.NewStoreError("failed to load dashboard", err)
	}
	summary := Summarize(list, q)
	return &summary, nil
}

// Admin summarizes every owner. Only expenses dated from the start of the history window are read.
func (s *Service) Admin(ctx context.Context, companyID string, q Query) (*Summary, error) {
	q, err := s.withDefaults(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	since := q.HistoryStart()
	list, err := s.repo.ListSince(ctx, since, Filter{CompanyID: companyID, CostCenter: q.CostCenter})
	if err != nil {
		s.logger.Error("failed to load admin dashboard", "error", err, "company_id", companyID, "since", since)
		return nil, errors.NewStoreError("failed to load dashboard", err)
	}
	s.logger.Debug("admin dashboard loaded", "company_id", companyID, "since", since, "rows", len(list))

	summary := Summarize(list, q)
	return &summary, nil
}
