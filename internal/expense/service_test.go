package expense_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
)

// mockExpenseRepository keeps copies so callers only see their writes after an Update call.
type mockExpenseRepository struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	expenses map[string]expense.Expense
	counters map[string]int

	getError    error
	updateError error
	deleteError error
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{
		expenses: make(map[string]expense.Expense),
		counters: make(map[string]int),
	}
}

func (m *mockExpenseRepository) seed(list ...*expense.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range list {
		m.expenses[e.ID] = *e
	}
}

func (m *mockExpenseRepository) get(id string) expense.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expenses[id]
}

func (m *mockExpenseRepository) filter(keep func(e expense.Expense) bool) []*expense.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*expense.Expense
	for _, e := range m.expenses {
		if keep(e) {
			cp := e
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	m.seed(e)
	return nil
}

func (m *mockExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok {
		return nil, errors.ErrExpenseNotFound
	}
	return &e, nil
}

func (m *mockExpenseRepository) GetByIDs(ctx context.Context, ids []string) ([]*expense.Expense, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	set := make(map[string]bool)
	for _, id := range ids {
		set[id] = true
	}
	return m.filter(func(e expense.Expense) bool { return set[e.ID] }), nil
}

func (m *mockExpenseRepository) ListByOwner(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error) {
	return m.filter(func(e expense.Expense) bool {
		return e.OwnerID == ownerID && (companyID == "" || e.CompanyID == companyID)
	}), nil
}

func (m *mockExpenseRepository) ListByCompany(ctx context.Context, companyID string) ([]*expense.Expense, error) {
	return m.filter(func(e expense.Expense) bool { return e.CompanyID == companyID }), nil
}

func (m *mockExpenseRepository) ListByReport(ctx context.Context, companyID string, ownerID int64, reportID string) ([]*expense.Expense, error) {
	return m.filter(func(e expense.Expense) bool {
		return e.CompanyID == companyID && e.ReportIDValue() == reportID && (ownerID == 0 || e.OwnerID == ownerID)
	}), nil
}

func (m *mockExpenseRepository) ReportIDExists(ctx context.Context, companyID, reportID string) (bool, error) {
	return len(m.filter(func(e expense.Expense) bool {
		return e.CompanyID == companyID && e.ReportIDValue() == reportID
	})) > 0, nil
}

func (m *mockExpenseRepository) ReportIDsInUse(ctx context.Context, companyID string) ([]string, error) {
	var ids []string
	for _, e := range m.filter(func(e expense.Expense) bool { return e.CompanyID == companyID && e.ReportID != nil }) {
		ids = append(ids, *e.ReportID)
	}
	return ids, nil
}

func (m *mockExpenseRepository) ReserveReportSequence(ctx context.Context, companyID string, year, floor int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s/%d", companyID, year)
	next := max(m.counters[key], floor) + 1
	m.counters[key] = next
	return next, nil
}

func (m *mockExpenseRepository) UpdateDetails(ctx context.Context, e *expense.Expense) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.seed(e)
	return nil
}

func (m *mockExpenseRepository) UpdateAttachment(ctx context.Context, id string, url *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok {
		return errors.ErrExpenseNotFound
	}
	e.AttachmentURL = url
	m.expenses[id] = e
	return nil
}

func (m *mockExpenseRepository) UpdateLifecycle(ctx context.Context, list []*expense.Expense) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.seed(list...)
	return nil
}

func (m *mockExpenseRepository) DeleteUnreconciled(ctx context.Context, ids []string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if m.expenses[id].IsReconciled {
			return errors.ErrExpenseReconciled
		}
	}
	for _, id := range ids {
		delete(m.expenses, id)
	}
	return nil
}

// Transaction serializes callers and restores the snapshot when fn fails.
func (m *mockExpenseRepository) Transaction(ctx context.Context, fn func(tx expense.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[string]expense.Expense, len(m.expenses))
	for k, v := range m.expenses {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.expenses = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type memoryFileStore struct {
	files   map[string]string
	deleted []string
}

func (f *memoryFileStore) Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "mem://" + objectPath
	f.files[url] = string(b)
	return url, nil
}

func (f *memoryFileStore) Delete(ctx context.Context, url string) error {
	delete(f.files, url)
	f.deleted = append(f.deleted, url)
	return nil
}

var _ = Describe("Expense Service", func() {
	var (
		repo      *mockExpenseRepository
		publisher *recordingPublisher
		files     *memoryFileStore
		service   *expense.Service
		ctx       context.Context
		now       time.Time
		seq       int
	)

	open := func(id string, ownerID int64, cc string) *expense.Expense {
		return &expense.Expense{
			ID:         id,
			OwnerID:    ownerID,
			CompanyID:  "acme",
			CostCenter: cc,
			Category:   "Travel",
			Value:      decimal.NewFromInt(100),
			Date:       now,
			Status:     expense.StatusActive,
		}
	}

	inReport := func(id string, ownerID int64, reportID string, status expense.Status) *expense.Expense {
		e := open(id, ownerID, "CC-1")
		e.Status = status
		e.ReportID = &reportID
		closed := now.Add(-time.Hour)
		e.ClosingDate = &closed
		return e
	}

	BeforeEach(func() {
		repo = newMockExpenseRepository()
		publisher = &recordingPublisher{}
		files = &memoryFileStore{files: make(map[string]string)}
		ctx = context.Background()
		now = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
		seq = 0

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = expense.NewService(repo, files, publisher, logger,
			expense.WithClock(func() time.Time { return now }),
			expense.WithIDGenerator(func() string {
				seq++
				return fmt.Sprintf("gen-%d", seq)
			}),
		)
	})

	Describe("CreateExpense", func() {
		validDTO := func() expense.CreateExpenseDTO {
			return expense.CreateExpenseDTO{
				CostCenter: "CC-1",
				Category:   "Travel",
				Value:      decimal.RequireFromString("12.30"),
				Date:       "2025-06-10",
				Fiscal: expense.FiscalInfo{
					SupplierName:     "Taxi Co",
					SupplierDocument: "12.345.678/0001-90",
					ReceiptNumber:    "991",
				},
			}
		}

		It("creates an Active expense with a noon-pinned date", func() {
			e, err := service.CreateExpense(ctx, 1, "acme", validDTO())
			Expect(err).NotTo(HaveOccurred())
			Expect(e.ID).To(Equal("gen-1"))
			Expect(e.Status).To(Equal(expense.StatusActive))
			Expect(e.Date.Hour()).To(Equal(12))
			Expect(repo.get("gen-1").CompanyID).To(Equal("acme"))
		})

		It("requires a selected company", func() {
			_, err := service.CreateExpense(ctx, 1, "", validDTO())
			Expect(err).To(MatchError(errors.ErrNoCompanySelected))
		})

		It("requires fiscal fields for regular documents", func() {
			dto := validDTO()
			dto.Fiscal = expense.FiscalInfo{}
			_, err := service.CreateExpense(ctx, 1, "acme", dto)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("supplier_name"))
		})

		It("skips fiscal checks for substitutes", func() {
			dto := validDTO()
			dto.Fiscal = expense.FiscalInfo{}
			dto.Substitute = true
			dto.SubstituteType = expense.SubstituteTypeSubstituta
			e, err := service.CreateExpense(ctx, 1, "acme", dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Status).To(Equal(expense.StatusSubstitute))
		})

		It("skips fiscal checks for OUTROS documents", func() {
			dto := validDTO()
			dto.Fiscal = expense.FiscalInfo{DocumentType: expense.DocumentTypeOther}
			_, err := service.CreateExpense(ctx, 1, "acme", dto)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("CloseReport", func() {
		It("allocates one above the highest id in use", func() {
			repo.seed(
				inReport("old-1", 9, "2025-0001", expense.StatusClosed),
				inReport("old-3", 9, "2025-0003", expense.StatusSubmitted),
				open("a", 1, "CC-1"),
				open("b", 1, "CC-1"),
			)

			id, err := service.CloseReport(ctx, 1, "acme", []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("2025-0004"))

			for _, eid := range []string{"a", "b"} {
				e := repo.get(eid)
				Expect(e.Status).To(Equal(expense.StatusClosed))
				Expect(*e.ReportID).To(Equal("2025-0004"))
				Expect(*e.ClosingDate).To(Equal(now))
			}
			Expect(publisher.types()).To(ConsistOf(events.EventTypeReportClosed))
		})

		It("suffixes substitute reports", func() {
			sub := open("s", 1, "CC-1")
			sub.Status = expense.StatusSubstitute
			st := expense.SubstituteTypeSubstituta
			sub.SubstituteType = &st
			repo.seed(sub, open("a", 1, "CC-1"))

			id, err := service.CloseReport(ctx, 1, "acme", []string{"a", "s"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("2025-0001 S"))
		})

		It("rejects mixed cost centers without writing", func() {
			repo.seed(open("a", 1, "CC-1"), open("b", 1, "CC-2"))

			_, err := service.CloseReport(ctx, 1, "acme", []string{"a", "b"})
			Expect(err).To(MatchError(errors.ErrMixedCostCenters))
			Expect(repo.get("a").Status).To(Equal(expense.StatusActive))
			Expect(repo.get("b").Status).To(Equal(expense.StatusActive))
			Expect(publisher.types()).To(BeEmpty())
		})

		It("rejects an empty selection and a missing company", func() {
			_, err := service.CloseReport(ctx, 1, "acme", nil)
			Expect(err).To(MatchError(errors.ErrEmptySelection))
			_, err = service.CloseReport(ctx, 1, "", []string{"a"})
			Expect(err).To(MatchError(errors.ErrNoCompanySelected))
		})

		It("rejects expenses that are already closed", func() {
			repo.seed(inReport("c", 1, "2025-0001", expense.StatusClosed), open("a", 1, "CC-1"))
			_, err := service.CloseReport(ctx, 1, "acme", []string{"a", "c"})
			Expect(err).To(MatchError(errors.ErrInvalidExpenseStatus))
			Expect(repo.get("a").Status).To(Equal(expense.StatusActive))
		})

		It("rejects expenses of another owner", func() {
			repo.seed(open("a", 2, "CC-1"))
			_, err := service.CloseReport(ctx, 1, "acme", []string{"a"})
			Expect(err).To(MatchError(errors.ErrUnauthorizedAccess))
		})

		It("never issues the same id to concurrent closes", func() {
			const n = 8
			for i := 0; i < n; i++ {
				repo.seed(open(fmt.Sprintf("e-%d", i), 1, "CC-1"))
			}

			var wg sync.WaitGroup
			ids := make([]string, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					id, err := service.CloseReport(ctx, 1, "acme", []string{fmt.Sprintf("e-%d", i)})
					Expect(err).NotTo(HaveOccurred())
					ids[i] = id
				}(i)
			}
			wg.Wait()

			seen := make(map[string]bool)
			for _, id := range ids {
				Expect(seen).NotTo(HaveKey(id))
				seen[id] = true
			}
		})

		It("wraps store failures", func() {
			repo.seed(open("a", 1, "CC-1"))
			repo.updateError = fmt.Errorf("connection reset")
			_, err := service.CloseReport(ctx, 1, "acme", []string{"a"})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeStore))
		})
	})

	Describe("report transitions", func() {
		BeforeEach(func() {
			repo.seed(
				inReport("a", 1, "2025-0007", expense.StatusClosed),
				inReport("b", 1, "2025-0007", expense.StatusClosed),
				inReport("x", 2, "2025-0007", expense.StatusClosed),
			)
		})

		It("submits only the owner's items", func() {
			n, err := service.SubmitReport(ctx, "acme", 1, "2025-0007")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(repo.get("a").Status).To(Equal(expense.StatusSubmitted))
			Expect(*repo.get("a").ClosingDate).To(Equal(now))
			Expect(repo.get("x").Status).To(Equal(expense.StatusClosed))
		})

		It("treats an unknown report as a no-op", func() {
			n, err := service.SubmitReport(ctx, "acme", 1, "2025-0999")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("marks paid", func() {
			_, err := service.MarkReportPaid(ctx, "acme", 1, "2025-0007")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.get("a").IsPaid).To(BeTrue())
			Expect(repo.get("b").IsPaid).To(BeTrue())
		})

		It("records audit decisions", func() {
			_, err := service.AuditReport(ctx, "acme", 1, "2025-0007", expense.AuditDTO{
				Decisions: map[string]expense.AdminStatus{"a": expense.AdminStatusApproved, "b": expense.AdminStatusRejected},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*repo.get("a").AdminStatus).To(Equal(expense.AdminStatusApproved))
			Expect(*repo.get("b").AdminStatus).To(Equal(expense.AdminStatusRejected))
		})

		It("rejects audit decisions for items outside the report", func() {
			_, err := service.AuditReport(ctx, "acme", 1, "2025-0007", expense.AuditDTO{
				Decisions: map[string]expense.AdminStatus{"x": expense.AdminStatusApproved},
			})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
			Expect(repo.get("x").AdminStatus).To(BeNil())
		})

		It("reopens a closed report back to open items", func() {
			_, err := service.ReopenReport(ctx, "acme", 1, "2025-0007", false)
			Expect(err).NotTo(HaveOccurred())
			a := repo.get("a")
			Expect(a.Status).To(Equal(expense.StatusActive))
			Expect(a.ReportID).To(BeNil())
			Expect(a.ClosingDate).To(BeNil())
		})

		It("requires admin to reopen a submitted report", func() {
			_, err := service.SubmitReport(ctx, "acme", 1, "2025-0007")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ReopenReport(ctx, "acme", 1, "2025-0007", false)
			Expect(err).To(MatchError(errors.ErrAdminRequired))
			Expect(repo.get("a").Status).To(Equal(expense.StatusSubmitted))

			_, err = service.ReopenReport(ctx, "acme", 1, "2025-0007", true)
			Expect(err).NotTo(HaveOccurred())
			a := repo.get("a")
			Expect(a.Status).To(Equal(expense.StatusClosed))
			Expect(*a.ReportID).To(Equal("2025-0007"))
		})

		It("clears payment and audit state when an admin reopens a submitted report", func() {
			_, err := service.SubmitReport(ctx, "acme", 1, "2025-0007")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.MarkReportPaid(ctx, "acme", 1, "2025-0007")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AuditReport(ctx, "acme", 1, "2025-0007", expense.AuditDTO{
				Decisions: map[string]expense.AdminStatus{"a": expense.AdminStatusApproved},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.get("a").IsPaid).To(BeTrue())

			_, err = service.ReopenReport(ctx, "acme", 1, "2025-0007", true)
			Expect(err).NotTo(HaveOccurred())
			for _, id := range []string{"a", "b"} {
				e := repo.get(id)
				Expect(e.Status).To(Equal(expense.StatusClosed), id)
				Expect(e.IsPaid).To(BeFalse(), id)
				Expect(e.AdminStatus).To(BeNil(), id)
				Expect(*e.ReportID).To(Equal("2025-0007"), id)
			}
		})

		It("returns reopened substitutes to Substitute", func() {
			st := expense.SubstituteTypeSubstituta
			sub := inReport("s", 3, "2025-0008 S", expense.StatusClosed)
			sub.SubstituteType = &st
			repo.seed(sub)

			_, err := service.ReopenReport(ctx, "acme", 3, "2025-0008 S", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.get("s").Status).To(Equal(expense.StatusSubstitute))
		})
	})

	Describe("RenameReport", func() {
		BeforeEach(func() {
			repo.seed(
				inReport("a", 1, "2025-0001", expense.StatusClosed),
				inReport("x", 2, "2025-0001", expense.StatusClosed),
				inReport("z", 1, "2025-0002", expense.StatusClosed),
			)
		})

		It("renames every owner's items when ownerID is zero", func() {
			n, err := service.RenameReport(ctx, "acme", 0, "2025-0001", expense.RenameReportDTO{ReportID: "2025-0100"})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(*repo.get("x").ReportID).To(Equal("2025-0100"))
		})

		It("refuses an id already in use", func() {
			_, err := service.RenameReport(ctx, "acme", 0, "2025-0001", expense.RenameReportDTO{ReportID: "2025-0002"})
			Expect(err).To(MatchError(errors.ErrReportIDExists))
			Expect(*repo.get("a").ReportID).To(Equal("2025-0001"))
		})

		It("refuses renaming to the same id", func() {
			_, err := service.RenameReport(ctx, "acme", 0, "2025-0001", expense.RenameReportDTO{ReportID: "2025-0001"})
			Expect(err).To(MatchError(errors.ErrReportIDExists))
		})

		It("refuses malformed ids", func() {
			for _, id := range []string{"25-1", "2025-00001", "2025-0001S"} {
				_, err := service.RenameReport(ctx, "acme", 0, "2025-0001", expense.RenameReportDTO{ReportID: id})
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue(), id)
				Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidReportID), id)
			}
			Expect(*repo.get("a").ReportID).To(Equal("2025-0001"))
		})

		It("allows an id that only another company uses", func() {
			other := inReport("g", 5, "2025-0009", expense.StatusClosed)
			other.CompanyID = "globex"
			repo.seed(other)

			n, err := service.RenameReport(ctx, "acme", 0, "2025-0001", expense.RenameReportDTO{ReportID: "2025-0009"})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(*repo.get("a").ReportID).To(Equal("2025-0009"))
			Expect(*repo.get("g").ReportID).To(Equal("2025-0009"))
			Expect(repo.get("g").CompanyID).To(Equal("globex"))
		})
	})

	Describe("deletion", func() {
		It("blocks the whole batch when one expense is reconciled", func() {
			a := open("a", 1, "CC-1")
			b := open("b", 1, "CC-1")
			b.IsReconciled = true
			repo.seed(a, b)

			_, err := service.BatchDeleteExpenses(ctx, 1, []string{"a", "b"})
			Expect(err).To(MatchError(errors.ErrExpenseReconciled))
			Expect(repo.get("a").ID).To(Equal("a"))
		})

		It("deletes a report and announces its attachments", func() {
			a := inReport("a", 1, "2025-0003", expense.StatusClosed)
			url := "mem://receipts/a.pdf"
			a.AttachmentURL = &url
			repo.seed(a, inReport("b", 1, "2025-0003", expense.StatusClosed))

			n, err := service.DeleteReport(ctx, "acme", 1, "2025-0003")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(repo.get("a").ID).To(BeEmpty())

			Expect(publisher.events).To(HaveLen(1))
			deleted, ok := publisher.events[0].(*events.ExpensesDeletedEvent)
			Expect(ok).To(BeTrue())
			Expect(deleted.AttachmentURLs).To(ConsistOf(url))
		})

		It("refuses to delete another owner's expense", func() {
			repo.seed(open("a", 2, "CC-1"))
			err := service.DeleteExpense(ctx, 1, "a")
			Expect(err).To(MatchError(errors.ErrUnauthorizedAccess))
		})
	})

	Describe("receipts", func() {
		It("uploads a receipt and replaces the previous one", func() {
			repo.seed(open("a", 1, "CC-1"))

			first, err := service.AttachReceipt(ctx, 1, "a", "nota fiscal.pdf", "application/pdf", strings.NewReader("v1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(*first.AttachmentURL).To(ContainSubstring("nota_fiscal.pdf"))

			now = now.Add(time.Minute)
			second, err := service.AttachReceipt(ctx, 1, "a", "new.pdf", "application/pdf", strings.NewReader("v2"))
			Expect(err).NotTo(HaveOccurred())
			Expect(files.deleted).To(ConsistOf(*first.AttachmentURL))
			Expect(*repo.get("a").AttachmentURL).To(Equal(*second.AttachmentURL))
		})

		It("removes a receipt", func() {
			url := "mem://receipts/a.pdf"
			e := open("a", 1, "CC-1")
			e.AttachmentURL = &url
			repo.seed(e)

			got, err := service.RemoveReceipt(ctx, 1, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.AttachmentURL).To(BeNil())
			Expect(files.deleted).To(ConsistOf(url))
		})
	})

	Describe("ListReports", func() {
		It("limits non-admins to their own reports", func() {
			repo.seed(
				inReport("a", 1, "2025-0001", expense.StatusClosed),
				inReport("x", 2, "2025-0002", expense.StatusClosed),
			)

			mine, err := service.ListReports(ctx, 1, "acme", false, expense.ReportFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(1))

			all, err := service.ListReports(ctx, 1, "acme", true, expense.ReportFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].ReportID).To(Equal("2025-0002"))
		})
	})
})
