package reconciliation

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/statement"
	"github.com/google/uuid"
)

// Repository is the bank transaction store plus the expense columns reconciliation owns.
// Link and unlink touch both tables inside one Transaction.
type Repository interface {
	// InsertIgnoringDuplicates inserts txs, skipping any (owner, fitid) already stored,
	// and returns how many rows were written.
	InsertIgnoringDuplicates(ctx context.Context, txs []*Transaction) (int, error)
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Transaction, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Transaction, error)
	// LinkedTransactions returns every linked transaction; ownerID 0 matches any owner.
	LinkedTransactions(ctx context.Context, ownerID int64) ([]*Transaction, error)
	SaveLink(ctx context.Context, t *Transaction) error
	SaveAnnotations(ctx context.Context, t *Transaction) error
	// DeleteUnlinked deletes all ids or none. A linked row fails the whole batch.
	DeleteUnlinked(ctx context.Context, ownerID int64, ids []string) error

	GetExpense(ctx context.Context, id string) (*expense.Expense, error)
	GetExpenses(ctx context.Context, ids []string) ([]*expense.Expense, error)
	// Candidates returns the owner's unreconciled expenses in companyID.
	Candidates(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error)
	// ReconciledExpenses returns expenses carrying a back-reference; ownerID 0 matches any owner.
	ReconciledExpenses(ctx context.Context, ownerID int64) ([]*expense.Expense, error)
	SaveReconciliation(ctx context.Context, e *expense.Expense) error

	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

type Service struct {
	repo      Repository
	parsers   *statement.Registry
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

func WithParsers(r *statement.Registry) Option {
	return func(s *Service) { s.parsers = r }
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		parsers:   statement.DefaultRegistry(),
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

// Import parses a statement file and stores the records the owner does not have yet.
// Re-importing the same file inserts nothing.
func (s *Service) Import(ctx context.Context, ownerID int64, format string, r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	parser := s.parsers.Get(format)
	if parser == nil {
		return summary, errors.NewValidationError("unsupported statement format: "+format, errors.ErrCodeInvalidStatement)
	}

	now := s.now()
	result, err := parser.Parse(r, now)
	if err != nil {
		s.logger.Warn("statement parse failed", "error", err, "owner_id", ownerID, "format", format)
		return summary, errors.NewValidationError("statement could not be parsed", errors.ErrCodeInvalidStatement).WithCause(err)
	}

	summary.Parsed = len(result.Records)
	summary.SkippedMalformed = result.SkippedMalformed
	summary.DateFallbacks = result.DateFallbacks()

	seen := make(map[string]struct{}, len(result.Records))
	txs := make([]*Transaction, 0, len(result.Records))
	for _, rec := range result.Records {
		if _, dup := seen[rec.FITID]; dup {
			continue
		}
		seen[rec.FITID] = struct{}{}
		if rec.DateFallback {
			s.logger.Warn("statement record has no readable date; using import date",
				"owner_id", ownerID, "fitid", rec.FITID, "date", rec.Date.Format("2006-01-02"))
		}
		txs = append(txs, NewFromRecord(ownerID, s.newID(), rec, now))
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	if len(txs) > 0 {
		inserted, err := s.repo.InsertIgnoringDuplicates(ctx, txs)
		if err != nil {
			s.logger.Error("failed to store statement", "error", err, "owner_id", ownerID, "records", len(txs))
			return summary, storeErr("failed to import statement", err)
		}
		summary.Inserted = inserted
	}
	summary.SkippedDuplicates = summary.Parsed - summary.Inserted

	s.logger.Info("statement imported",
		"owner_id", ownerID,
		"parsed", summary.Parsed,
		"inserted", summary.Inserted,
		"skipped_duplicates", summary.SkippedDuplicates,
		"skipped_malformed", summary.SkippedMalformed)
	s.publish(ctx, events.NewStatementImportedEvent(ownerID, summary.Inserted, summary.SkippedDuplicates+summary.SkippedMalformed))
	return summary, nil
}

// Statement returns one month of the owner's account with running balances and link badges
// as seen from viewerCompany.
func (s *Service) Statement(ctx context.Context, ownerID int64, viewerCompany string, period Period, filter StatementFilter) (*Statement, error) {
	if period.Month < time.January || period.Month > time.December {
		return nil, errors.NewValidationFieldError("month", "month must be between 1 and 12", errors.ErrCodeValidationFailed)
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	txs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr("failed to load transactions", err)
	}

	st := BuildStatement(RunningBalance(txs), period, filter)

	var linkedIDs []string
	for _, row := range st.Rows {
		if row.Transaction.IsLinked() {
			linkedIDs = append(linkedIDs, row.Transaction.LinkedExpenseIDValue())
		}
	}
	byID := map[string]*expense.Expense{}
	if len(linkedIDs) > 0 {
		linked, err := s.repo.GetExpenses(ctx, linkedIDs)
		if err != nil {
			return nil, storeErr("failed to load linked expenses", err)
		}
		for _, e := range linked {
			byID[e.ID] = e
		}
	}
	for i := range st.Rows {
		t := st.Rows[i].Transaction
		st.Rows[i].Badge = ResolveBadge(t, byID[t.LinkedExpenseIDValue()], viewerCompany)
	}
	return &st, nil
}

// Candidates lists the expenses the owner may link from viewerCompany. query matches the
// description or the value.
func (s *Service) Candidates(ctx context.Context, ownerID int64, viewerCompany, query string) ([]*expense.Expense, error) {
	if viewerCompany == "" {
		return nil, errors.ErrNoCompanySelected
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repo.Candidates(ctx, ownerID, viewerCompany)
	if err != nil {
		return nil, storeErr("failed to load candidates", err)
	}
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return list, nil
	}
	out := make([]*expense.Expense, 0, len(list))
	for _, e := range list {
		if strings.Contains(strings.ToLower(e.Description), term) || strings.Contains(e.Value.String(), term) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Link reconciles a transaction with an expense. Both sides are written in one transaction.
func (s *Service) Link(ctx context.Context, ownerID int64, viewerCompany, transactionID string, dto LinkDTO) (*Transaction, error) {
	if viewerCompany == "" {
		return nil, errors.ErrNoCompanySelected
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	var linked *Transaction
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		t, err := owned(ctx, tx, ownerID, transactionID)
		if err != nil {
			return err
		}
		if t.IsLinked() {
			return errors.ErrTransactionLinked
		}

		e, err := tx.GetExpense(ctx, dto.ExpenseID)
		if err != nil {
			return err
		}
		if e.OwnerID != t.OwnerID {
			return errors.ErrUnauthorizedAccess
		}
		if e.CompanyID != viewerCompany {
			return errors.ErrCompanyMismatch
		}
		if e.IsReconciled || e.ReconciledTransactionID != nil {
			return errors.ErrExpenseAlreadyLinked
		}

		now := s.now()
		t.Link(e, now)
		e.MarkReconciled(t.ID, now)
		if err := tx.SaveLink(ctx, t); err != nil {
			return err
		}
		if err := tx.SaveReconciliation(ctx, e); err != nil {
			return err
		}
		linked = t
		return nil
	})
	if err != nil {
		s.logger.Warn("link failed", "error", err, "transaction_id", transactionID, "expense_id", dto.ExpenseID, "company_id", viewerCompany)
		return nil, storeErr("failed to link transaction", err)
	}

	s.logger.Info("transaction linked", "transaction_id", transactionID, "expense_id", dto.ExpenseID, "company_id", viewerCompany)
	s.publish(ctx, events.NewTransactionLinkEvent(events.EventTypeTransactionLinked, transactionID, dto.ExpenseID, viewerCompany))
	return linked, nil
}

// Unlink removes a reconciliation. An expense that no longer exists does not block it.
func (s *Service) Unlink(ctx context.Context, ownerID int64, viewerCompany, transactionID string) (*Transaction, error) {
	if viewerCompany == "" {
		return nil, errors.ErrNoCompanySelected
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		unlinked  *Transaction
		expenseID string
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		t, err := owned(ctx, tx, ownerID, transactionID)
		if err != nil {
			return err
		}
		if !t.IsLinked() {
			return errors.ErrTransactionNotLinked
		}
		expenseID = t.LinkedExpenseIDValue()

		e, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			e = nil
		}
		if LockedFor(t, e, viewerCompany) {
			return errors.ErrCompanyMismatch
		}

		now := s.now()
		t.Unlink(now)
		if err := tx.SaveLink(ctx, t); err != nil {
			return err
		}
		if e != nil && e.ReconciledTransactionID != nil && *e.ReconciledTransactionID == t.ID {
			e.ClearReconciliation(now)
			if err := tx.SaveReconciliation(ctx, e); err != nil {
				return err
			}
		} else {
			s.logger.Warn("unlink: expense side already cleared", "transaction_id", t.ID, "expense_id", expenseID)
		}
		unlinked = t
		return nil
	})
	if err != nil {
		s.logger.Warn("unlink failed", "error", err, "transaction_id", transactionID, "company_id", viewerCompany)
		return nil, storeErr("failed to unlink transaction", err)
	}

	s.logger.Info("transaction unlinked", "transaction_id", transactionID, "expense_id", expenseID, "company_id", viewerCompany)
	s.publish(ctx, events.NewTransactionLinkEvent(events.EventTypeTransactionUnlinked, transactionID, expenseID, viewerCompany))
	return unlinked, nil
}

// Annotate edits the manual description and report id. Locked transactions are read-only.
func (s *Service) Annotate(ctx context.Context, ownerID int64, viewerCompany, transactionID string, dto AnnotateDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	var annotated *Transaction
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		t, err := owned(ctx, tx, ownerID, transactionID)
		if err != nil {
			return err
		}
		if t.IsLinked() {
			e, err := tx.GetExpense(ctx, t.LinkedExpenseIDValue())
			if err != nil && !isNotFound(err) {
				return err
			}
			if ResolveBadge(t, e, viewerCompany).Locked {
				return errors.ErrCompanyMismatch
			}
		}

		if dto.ManualDescription != nil {
			t.ManualDescription = strings.TrimSpace(*dto.ManualDescription)
		}
		if dto.ManualReportID != nil {
			t.ManualReportID = strings.TrimSpace(*dto.ManualReportID)
		}
		t.UpdatedAt = s.now()
		if err := tx.SaveAnnotations(ctx, t); err != nil {
			return err
		}
		annotated = t
		return nil
	})
	if err != nil {
		return nil, storeErr("failed to annotate transaction", err)
	}
	return annotated, nil
}

// BatchDelete deletes the selected transactions. If any of them is linked nothing is deleted.
func (s *Service) BatchDelete(ctx context.Context, ownerID int64, dto BatchDeleteDTO) (int, error) {
	if err := dto.Validate(); err != nil {
		return 0, err
	}
	ids := uniqueIDs(dto.TransactionIDs)
	if len(ids) == 0 {
		return 0, errors.ErrEmptySelection
	}

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	txs, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, storeErr("failed to load transactions", err)
	}
	if len(txs) != len(ids) {
		return 0, errors.ErrTransactionNotFound
	}
	for _, t := range txs {
		if t.OwnerID != ownerID {
			return 0, errors.ErrUnauthorizedAccess
		}
		if t.IsLinked() {
			s.logger.Warn("batch delete blocked: transaction linked", "transaction_id", t.ID, "owner_id", ownerID)
			return 0, errors.ErrTransactionLinked
		}
	}

	if err := s.repo.DeleteUnlinked(ctx, ownerID, ids); err != nil {
		s.logger.Error("failed to delete transactions", "error", err, "owner_id", ownerID, "count", len(ids))
		return 0, storeErr("failed to delete transactions", err)
	}
	s.logger.Info("transactions deleted", "owner_id", ownerID, "count", len(ids))
	return len(ids), nil
}

// Sweep repairs one-sided links. ownerID 0 sweeps every owner.
//   - a transaction pointing at a missing expense loses its link
//   - a transaction pointing at an expense with no back-reference restores it
//   - a transaction pointing at an expense settled by another transaction loses its link
//   - an expense pointing at a transaction that does not point back is cleared
func (s *Service) Sweep(ctx context.Context, ownerID int64) (SweepResult, error) {
	var result SweepResult

	ctx, cancel := errors.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		result = SweepResult{}
		now := s.now()

		linked, err := tx.LinkedTransactions(ctx, ownerID)
		if err != nil {
			return err
		}
		expenseIDs := make([]string, 0, len(linked))
		for _, t := range linked {
			expenseIDs = append(expenseIDs, t.LinkedExpenseIDValue())
		}
		expenses := map[string]*expense.Expense{}
		if len(expenseIDs) > 0 {
			list, err := tx.GetExpenses(ctx, expenseIDs)
			if err != nil {
				return err
			}
			for _, e := range list {
				expenses[e.ID] = e
			}
		}

		for _, t := range linked {
			e := expenses[t.LinkedExpenseIDValue()]
			switch {
			case e == nil:
				s.logger.Warn("sweep: transaction linked to missing expense", "transaction_id", t.ID, "expense_id", t.LinkedExpenseIDValue())
				t.Unlink(now)
				if err := tx.SaveLink(ctx, t); err != nil {
					return err
				}
				result.LinksCleared++
			case e.ReconciledTransactionID == nil || *e.ReconciledTransactionID == "":
				s.logger.Warn("sweep: restoring expense back-reference", "transaction_id", t.ID, "expense_id", e.ID)
				e.MarkReconciled(t.ID, now)
				if err := tx.SaveReconciliation(ctx, e); err != nil {
					return err
				}
				result.BackRefsRestored++
			case *e.ReconciledTransactionID != t.ID:
				s.logger.Warn("sweep: expense settled by another transaction", "transaction_id", t.ID, "expense_id", e.ID,
					"settled_by", *e.ReconciledTransactionID)
				t.Unlink(now)
				if err := tx.SaveLink(ctx, t); err != nil {
					return err
				}
				result.LinksCleared++
			}
		}

		reconciled, err := tx.ReconciledExpenses(ctx, ownerID)
		if err != nil {
			return err
		}
		txIDs := make([]string, 0, len(reconciled))
		for _, e := range reconciled {
			if e.ReconciledTransactionID != nil {
				txIDs = append(txIDs, *e.ReconciledTransactionID)
			}
		}
		txByID := map[string]*Transaction{}
		if len(txIDs) > 0 {
			list, err := tx.GetByIDs(ctx, txIDs)
			if err != nil {
				return err
			}
			for _, t := range list {
				txByID[t.ID] = t
			}
		}
		for _, e := range reconciled {
			var t *Transaction
			if e.ReconciledTransactionID != nil {
				t = txByID[*e.ReconciledTransactionID]
			}
			if t != nil && t.LinkedExpenseIDValue() == e.ID {
				continue
			}
			s.logger.Warn("sweep: clearing expense reconciliation", "expense_id", e.ID)
			e.ClearReconciliation(now)
			if err := tx.SaveReconciliation(ctx, e); err != nil {
				return err
			}
			result.ExpensesCleared++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("reconciliation sweep failed", "error", err, "owner_id", ownerID)
		return SweepResult{}, storeErr("reconciliation sweep failed", err)
	}

	if result.Total() > 0 {
		s.logger.Info("reconciliation sweep repaired links",
			"owner_id", ownerID,
			"links_cleared", result.LinksCleared,
			"back_refs_restored", result.BackRefsRestored,
			"expenses_cleared", result.ExpensesCleared)
	}
	return result, nil
}

func owned(ctx context.Context, repo Repository, ownerID int64, id string) (*Transaction, error) {
	t, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, errors.ErrUnauthorizedAccess
	}
	return t, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", evt.EventType())
	}
}

func isNotFound(err error) bool {
	appErr, ok := errors.IsAppError(err)
	return ok && appErr.Type == errors.ErrorTypeNotFound
}

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
