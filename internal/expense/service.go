package expense

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
	"github.com/frahmantamala/expense-reimbursement/internal/reportid"
	"github.com/google/uuid"
)

// Repository is the expense store. Every method taking a slice applies all rows or none.
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id string) (*Expense, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Expense, error)
	ListByOwner(ctx context.Context, ownerID int64, companyID string) ([]*Expense, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Expense, error)
	// ListByReport returns the expenses of one report; ownerID 0 matches any owner.
	ListByReport(ctx context.Context, companyID string, ownerID int64, reportID string) ([]*Expense, error)
	ReportIDExists(ctx context.Context, companyID, reportID string) (bool, error)
	ReportIDsInUse(ctx context.Context, companyID string) ([]string, error)
	// ReserveReportSequence bumps the (company, year) counter to max(counter, floor)+1 and returns it.
	ReserveReportSequence(ctx context.Context, companyID string, year, floor int) (int, error)
	UpdateDetails(ctx context.Context, e *Expense) error
	UpdateAttachment(ctx context.Context, id string, url *string) error
	UpdateLifecycle(ctx context.Context, expenses []*Expense) error
	DeleteUnreconciled(ctx context.Context, ids []string) error
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

// FileStore keeps receipt attachments.
type FileStore interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type Service struct {
	repo      Repository
	files     FileStore
	publisher events.Publisher
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(repo Repository, files FileStore, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		files:     files,
		publisher: publisher,
		logger:    logger,
		timeout:   errors.DefaultStoreTimeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateExpense(ctx context.Context, ownerID int64, companyID string, dto CreateExpenseDTO) (*Expense, error) {
	if companyID == "" {
		return nil, errors.ErrNoCompanySelected
	}
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "error", err.GetDetailedMessage(), "owner_id", ownerID)
		return nil, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	e := NewExpense(ownerID, companyID, s.newID(), dto, s.now())
	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "owner_id", ownerID)
		return nil, storeErr("failed to create expense", err)
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"owner_id", ownerID,
		"company_id", companyID,
		"status", e.Status)
	return e, nil
}

func (s *Service) UpdateExpense(ctx context.Context, ownerID int64, id string, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.owned(ctx, s.repo, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !e.IsOpen() {
		return nil, errors.ErrInvalidExpenseStatus
	}

	e.apply(dto)
	e.UpdatedAt = s.now()
	if err := s.repo.UpdateDetails(ctx, e); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, storeErr("failed to update expense", err)
	}
	return e, nil
}

func (s *Service) GetExpense(ctx context.Context, ownerID int64, id string, isAdmin bool) (*Expense, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to load expense", err)
	}
	if !isAdmin && e.OwnerID != ownerID {
		s.logger.Warn("unauthorized access to expense", "expense_id", id, "owner_id", ownerID)
		return nil, errors.ErrUnauthorizedAccess
	}
	return e, nil
}

func (s *Service) ListExpenses(ctx context.Context, ownerID int64, companyID string) ([]*Expense, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repo.ListByOwner(ctx, ownerID, companyID)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "owner_id", ownerID)
		return nil, storeErr("failed to list expenses", err)
	}
	return list, nil
}

// ListReports groups the caller's expenses into reports. Admins see every owner of the company.
func (s *Service) ListReports(ctx context.Context, ownerID int64, companyID string, isAdmin bool, filter ReportFilter) ([]Report, error) {
	if companyID == "" {
		return nil, errors.ErrNoCompanySelected
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		list []*Expense
		err  error
	)
	if isAdmin {
		list, err = s.repo.ListByCompany(ctx, companyID)
	} else {
		list, err = s.repo.ListByOwner(ctx, ownerID, companyID)
		filter.OwnerID = ownerID
	}
	if err != nil {
		return nil, storeErr("failed to list reports", err)
	}
	return FilterReports(GroupReports(list), filter), nil
}

// CloseReport stamps the selected open expenses with a freshly allocated report id.
// Allocation and the status change commit together.
func (s *Service) CloseReport(ctx context.Context, ownerID int64, companyID string, ids []string) (string, error) {
	if companyID == "" {
		return "", errors.ErrNoCompanySelected
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return "", errors.ErrEmptySelection
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	var newID string
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		items, err := tx.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(items) != len(ids) {
			return errors.ErrExpenseNotFound
		}

		substitute := false
		for _, e := range items {
			if e.OwnerID != ownerID {
				return errors.ErrUnauthorizedAccess
			}
			if e.CompanyID != companyID {
				return errors.ErrCompanyMismatch
			}
			if e.CostCenter != items[0].CostCenter {
				return errors.ErrMixedCostCenters
			}
			if !e.IsOpen() {
				return errors.ErrInvalidExpenseStatus
			}
			if e.HasSubstituteMarker() {
				substitute = true
			}
		}

		inUse, err := tx.ReportIDsInUse(ctx, companyID)
		if err != nil {
			return err
		}
		year := now.Year()
		seq, err := tx.ReserveReportSequence(ctx, companyID, year, reportid.MaxSequence(inUse, year))
		if err != nil {
			return err
		}
		newID = reportid.Format(year, seq, substitute)

		for _, e := range items {
			if err := e.Close(newID, now); err != nil {
				return err
			}
		}
		return tx.UpdateLifecycle(ctx, items)
	})
	if err != nil {
		s.logger.Warn("close report failed", "error", err, "owner_id", ownerID, "company_id", companyID, "count", len(ids))
		return "", storeErr("failed to close report", err)
	}

	s.logger.Info("report closed", "report_id", newID, "owner_id", ownerID, "company_id", companyID, "count", len(ids))
	s.publish(ctx, events.NewReportEvent(events.EventTypeReportClosed, companyID, ownerID, newID, ids))
	return newID, nil
}

// SubmitReport moves a closed report to Submitted. Unknown reports are a no-op.
func (s *Service) SubmitReport(ctx context.Context, companyID string, ownerID int64, reportID string) (int, error) {
	return s.mutateReport(ctx, companyID, ownerID, reportID, events.EventTypeReportSubmitted, func(items []*Expense, now time.Time) error {
		for _, e := range items {
			e.Submit(now)
		}
		return nil
	})
}

func (s *Service) MarkReportPaid(ctx context.Context, companyID string, ownerID int64, reportID string) (int, error) {
	return s.mutateReport(ctx, companyID, ownerID, reportID, events.EventTypeReportPaid, func(items []*Expense, now time.Time) error {
		for _, e := range items {
			e.MarkPaid(now)
		}
		return nil
	})
}

// AuditReport records per-item admin decisions. Every decision must target an item of the report.
func (s *Service) AuditReport(ctx context.Context, companyID string, ownerID int64, reportID string, dto AuditDTO) (int, error) {
	if err := dto.Validate(); err != nil {
		return 0, err
	}
	return s.mutateReport(ctx, companyID, ownerID, reportID, "", func(items []*Expense, now time.Time) error {
		byID := make(map[string]*Expense, len(items))
		for _, e := range items {
			byID[e.ID] = e
		}
		for id := range dto.Decisions {
			if _, ok := byID[id]; !ok {
				return errors.NewValidationFieldError("decisions."+id, "expense is not part of this report", errors.ErrCodeInvalidAuditDecision)
			}
		}
		for id, decision := range dto.Decisions {
			byID[id].SetAudit(decision, now)
		}
		return nil
	})
}

// ReopenReport walks a report one phase back. Reopening a submitted report needs admin privilege.
func (s *Service) ReopenReport(ctx context.Context, companyID string, ownerID int64, reportID string, isAdmin bool) (int, error) {
	return s.mutateReport(ctx, companyID, ownerID, reportID, events.EventTypeReportReopened, func(items []*Expense, now time.Time) error {
		submitted := false
		for _, e := range items {
			if e.Status == StatusSubmitted {
				submitted = true
				break
			}
		}
		if submitted && !isAdmin {
			return errors.ErrAdminRequired
		}
		for _, e := range items {
			e.Reopen(submitted, now)
		}
		return nil
	})
}

// RenameReport changes the id of every expense in a report. ownerID 0 renames across owners.
func (s *Service) RenameReport(ctx context.Context, companyID string, ownerID int64, oldID string, dto RenameReportDTO) (int, error) {
	if companyID == "" {
		return 0, errors.ErrNoCompanySelected
	}
	if err := dto.Validate(); err != nil {
		return 0, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	count := 0
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		exists, err := tx.ReportIDExists(ctx, companyID, dto.ReportID)
		if err != nil {
			return err
		}
		if exists {
			return errors.ErrReportIDExists
		}

		items, err := tx.ListByReport(ctx, companyID, ownerID, oldID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.ErrExpenseNotFound.WithMessage("report not found")
		}
		now := s.now()
		for _, e := range items {
			e.RenameReport(dto.ReportID, now)
		}
		count = len(items)
		return tx.UpdateLifecycle(ctx, items)
	})
	if err != nil {
		s.logger.Warn("rename report failed", "error", err, "company_id", companyID, "old_id", oldID, "new_id", dto.ReportID)
		return 0, storeErr("failed to rename report", err)
	}

	s.logger.Info("report renamed", "company_id", companyID, "old_id", oldID, "new_id", dto.ReportID, "count", count)
	return count, nil
}

// DeleteReport removes every expense of a report. Attachments are cleaned up afterwards, best effort.
func (s *Service) DeleteReport(ctx context.Context, companyID string, ownerID int64, reportID string) (int, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.ListByReport(ctx, companyID, ownerID, reportID)
	if err != nil {
		return 0, storeErr("failed to load report", err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := s.deleteAll(ctx, ownerID, items); err != nil {
		return 0, err
	}
	s.logger.Info("report deleted", "company_id", companyID, "owner_id", ownerID, "report_id", reportID, "count", len(items))
	return len(items), nil
}

func (s *Service) DeleteExpense(ctx context.Context, ownerID int64, id string) error {
	_, err := s.BatchDeleteExpenses(ctx, ownerID, []string{id})
	return err
}

// BatchDeleteExpenses deletes all the given expenses or none of them and returns how many were removed.
// Blank and repeated ids are ignored.
func (s *Service) BatchDeleteExpenses(ctx context.Context, ownerID int64, ids []string) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, errors.ErrEmptySelection
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, storeErr("failed to load expenses", err)
	}
	if len(items) != len(ids) {
		return 0, errors.ErrExpenseNotFound
	}
	for _, e := range items {
		if e.OwnerID != ownerID {
			return 0, errors.ErrUnauthorizedAccess
		}
	}
	if err := s.deleteAll(ctx, ownerID, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Service) deleteAll(ctx context.Context, ownerID int64, items []*Expense) error {
	ids := make([]string, 0, len(items))
	var urls []string
	for _, e := range items {
		if err := e.CanDelete(); err != nil {
			s.logger.Warn("delete blocked: expense reconciled", "expense_id", e.ID)
			return err
		}
		ids = append(ids, e.ID)
		if e.AttachmentURL != nil && *e.AttachmentURL != "" {
			urls = append(urls, *e.AttachmentURL)
		}
	}

	if err := s.repo.DeleteUnreconciled(ctx, ids); err != nil {
		s.logger.Error("failed to delete expenses", "error", err, "count", len(ids))
		return storeErr("failed to delete expenses", err)
	}

	s.publish(ctx, events.NewExpensesDeletedEvent(ownerID, ids, urls))
	return nil
}

// AttachReceipt uploads a receipt and replaces the previous one.
func (s *Service) AttachReceipt(ctx context.Context, ownerID int64, id, filename, contentType string, r io.Reader) (*Expense, error) {
	if s.files == nil {
		return nil, errors.NewInternalError("file storage is not configured", nil)
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.owned(ctx, s.repo, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !e.IsOpen() {
		return nil, errors.ErrInvalidExpenseStatus
	}

	objectPath := fmt.Sprintf("receipts/%d/%s/%d_%s", ownerID, id, s.now().Unix(), sanitizeFilename(filename))
	url, err := s.files.Upload(ctx, objectPath, r, contentType)
	if err != nil {
		s.logger.Error("receipt upload failed", "error", err, "expense_id", id)
		return nil, errors.NewInternalError("failed to upload receipt", err)
	}

	previous := e.AttachmentURL
	if err := s.repo.UpdateAttachment(ctx, id, &url); err != nil {
		s.removeFile(ctx, url)
		return nil, storeErr("failed to save receipt", err)
	}
	if previous != nil {
		s.removeFile(ctx, *previous)
	}

	e.AttachmentURL = &url
	return e, nil
}

func (s *Service) RemoveReceipt(ctx context.Context, ownerID int64, id string) (*Expense, error) {
	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.owned(ctx, s.repo, ownerID, id)
	if err != nil {
		return nil, err
	}
	if e.AttachmentURL == nil {
		return e, nil
	}
	if err := s.repo.UpdateAttachment(ctx, id, nil); err != nil {
		return nil, storeErr("failed to remove receipt", err)
	}
	s.removeFile(ctx, *e.AttachmentURL)
	e.AttachmentURL = nil
	return e, nil
}

// mutateReport loads a report, applies fn and writes every item in one batch.
// eventType "" publishes nothing.
func (s *Service) mutateReport(ctx context.Context, companyID string, ownerID int64, reportID, eventType string, fn func(items []*Expense, now time.Time) error) (int, error) {
	if companyID == "" {
		return 0, errors.ErrNoCompanySelected
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ids []string
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		items, err := tx.ListByReport(ctx, companyID, ownerID, reportID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		if err := fn(items, s.now()); err != nil {
			return err
		}
		for _, e := range items {
			ids = append(ids, e.ID)
		}
		return tx.UpdateLifecycle(ctx, items)
	})
	if err != nil {
		s.logger.Warn("report update failed", "error", err, "company_id", companyID, "owner_id", ownerID, "report_id", reportID)
		return 0, storeErr("failed to update report", err)
	}
	if len(ids) == 0 {
		s.logger.Debug("report update matched nothing", "company_id", companyID, "owner_id", ownerID, "report_id", reportID)
		return 0, nil
	}

	s.logger.Info("report updated", "company_id", companyID, "owner_id", ownerID, "report_id", reportID, "count", len(ids), "event", eventType)
	if eventType != "" {
		s.publish(ctx, events.NewReportEvent(eventType, companyID, ownerID, reportID, ids))
	}
	return len(ids), nil
}

func (s *Service) owned(ctx context.Context, repo Repository, ownerID int64, id string) (*Expense, error) {
	e, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to load expense", err)
	}
	if e.OwnerID != ownerID {
		return nil, errors.ErrUnauthorizedAccess
	}
	return e, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", evt.EventType())
	}
}

func (s *Service) removeFile(ctx context.Context, url string) {
	if s.files == nil || url == "" {
		return
	}
	if err := s.files.Delete(ctx, url); err != nil {
		s.logger.Warn("attachment delete failed", "error", err, "url", url)
	}
}

// storeErr passes domain errors through and wraps anything else as a store failure.
func storeErr(message string, err error) error {
	if appErr, ok := errors.IsAppError(err); ok {
		return appErr
	}
	return errors.NewStoreError(message, err)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == "/" {
		return "receipt"
	}
	return name
}
