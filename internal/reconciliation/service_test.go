package reconciliation_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	txDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/banktransaction"
	expenseDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/core/events"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation/postgres"
)

const march = `OFXHEADER:100
<OFX><BANKMSGSRSV1><STMTTRNRS><STMTRS><BANKTRANLIST>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250305
<TRNAMT>100.00
<FITID>F1
<MEMO>Refund
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250306
<TRNAMT>-30.00
<FITID>F2
<MEMO>Taxi
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250307
<FITID>F3
</STMTTRN>
</BANKTRANLIST></STMTRS></STMTTRNRS></BANKMSGSRSV1></OFX>`

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
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

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *reconciliation.Service
		publisher *recordingPublisher
		clock     = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	)

	seedExpense := func(id string, ownerID int64, companyID string) {
		rid := "2025-0001"
		e := &expense.Expense{
			ID:          id,
			OwnerID:     ownerID,
			CompanyID:   companyID,
			CostCenter:  "CC-1",
			Category:    "Travel",
			Description: "Taxi " + id,
			Value:       decimal.RequireFromString("30.00"),
			Date:        time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC),
			Status:      expense.StatusClosed,
			ReportID:    &rid,
			CreatedAt:   clock,
			UpdatedAt:   clock,
		}
		Expect(db.Create(expense.ToDataModel(e)).Error).To(Succeed())
	}

	loadExpense := func(id string) *expense.Expense {
		var dm expenseDatamodel.Expense
		Expect(db.Where("id = ?", id).First(&dm).Error).To(Succeed())
		return expense.FromDataModel(&dm)
	}

	loadTx := func(id string) *reconciliation.Transaction {
		var dm txDatamodel.BankTransaction
		Expect(db.Where("id = ?", id).First(&dm).Error).To(Succeed())
		return reconciliation.FromDataModel(&dm)
	}

	importMarch := func() reconciliation.ImportSummary {
		summary, err := svc.Import(ctx, 1, "ofx", strings.NewReader(march))
		Expect(err).NotTo(HaveOccurred())
		return summary
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&txDatamodel.BankTransaction{}, &expenseDatamodel.Expense{})).To(Succeed())

		seq := 0
		publisher = &recordingPublisher{}
		svc = reconciliation.NewService(
			postgres.NewBankTransactionRepository(db),
			publisher,
			slog.New(slog.NewTextHandler(io.Discard, nil)),
			reconciliation.WithClock(func() time.Time { return clock }),
			reconciliation.WithIDGenerator(func() string {
				seq++
				return fmt.Sprintf("tx-%d", seq)
			}),
		)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Import", func() {
		It("stores well-formed records and counts the malformed ones", func() {
			summary := importMarch()
			Expect(summary).To(Equal(reconciliation.ImportSummary{Parsed: 2, Inserted: 2, SkippedMalformed: 1}))

			t := loadTx("tx-1")
			Expect(t.FITID).To(Equal("F1"))
			Expect(t.IsLinked()).To(BeFalse())
			Expect(t.ManualDescription).To(BeEmpty())
			Expect(publisher.types()).To(ContainElement(events.EventTypeStatementImported))
		})

		It("inserts nothing when the same file is imported again", func() {
			importMarch()
			summary := importMarch()
			Expect(summary.Inserted).To(Equal(0))
			Expect(summary.SkippedDuplicates).To(Equal(2))

			var count int64
			Expect(db.Model(&txDatamodel.BankTransaction{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(2)))
		})

		It("skips fitids repeated inside one file", func() {
			doubled := strings.Replace(march, "<FITID>F2", "<FITID>F1", 1)
			summary, err := svc.Import(ctx, 1, "ofx", strings.NewReader(doubled))
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Inserted).To(Equal(1))
			Expect(summary.SkippedDuplicates).To(Equal(1))
		})

		It("keeps fitids separate per owner", func() {
			importMarch()
			summary, err := svc.Import(ctx, 2, "ofx", strings.NewReader(march))
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Inserted).To(Equal(2))
		})

		It("rejects unknown formats", func() {
			_, err := svc.Import(ctx, 1, "qif", strings.NewReader(march))
			Expect(err).To(MatchError(errors.NewValidationError("", errors.ErrCodeInvalidStatement)))
		})

		It("rejects files that are not statements", func() {
			_, err := svc.Import(ctx, 1, "ofx", strings.NewReader("hello"))
			Expect(err).To(MatchError(errors.NewValidationError("", errors.ErrCodeInvalidStatement)))
		})
	})

	Describe("Link and Unlink", func() {
		BeforeEach(func() {
			importMarch()
			seedExpense("e-1", 1, "acme")
			seedExpense("e-2", 1, "acme")
		})

		It("writes both sides of the link", func() {
			t, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.LinkedExpenseIDValue()).To(Equal("e-1"))

			stored := loadTx("tx-2")
			Expect(stored.LinkedExpenseIDValue()).To(Equal("e-1"))
			Expect(stored.ManualCompanyID).To(Equal("acme"))
			Expect(stored.ManualReportID).To(Equal("2025-0001"))
			Expect(stored.ManualDescription).To(Equal("Taxi e-1"))

			e := loadExpense("e-1")
			Expect(e.IsReconciled).To(BeTrue())
			Expect(e.IsPaid).To(BeTrue())
			Expect(*e.ReconciledTransactionID).To(Equal("tx-2"))
			Expect(e.ReconciledDate).NotTo(BeNil())
			Expect(e.Status).To(Equal(expense.StatusClosed))
		})

		It("refuses to link an already linked transaction", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-2"})
			Expect(err).To(MatchError(errors.ErrTransactionLinked))
			Expect(loadExpense("e-2").IsReconciled).To(BeFalse())
		})

		It("refuses to link an expense settled by another transaction", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Link(ctx, 1, "acme", "tx-1", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).To(MatchError(errors.ErrExpenseAlreadyLinked))
			Expect(loadTx("tx-1").IsLinked()).To(BeFalse())
		})

		It("refuses to link an expense of another company", func() {
			_, err := svc.Link(ctx, 1, "globex", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).To(MatchError(errors.ErrCompanyMismatch))
			Expect(loadTx("tx-2").IsLinked()).To(BeFalse())
			Expect(loadExpense("e-1").IsReconciled).To(BeFalse())
		})

		It("refuses transactions of another owner", func() {
			_, err := svc.Link(ctx, 2, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).To(MatchError(errors.ErrUnauthorizedAccess))
		})

		It("prefers the expense description over an earlier note", func() {
			note := "Airport ride"
			_, err := svc.Annotate(ctx, 1, "acme", "tx-2", reconciliation.AnnotateDTO{ManualDescription: &note})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadTx("tx-2").ManualDescription).To(Equal("Taxi e-1"))
		})

		It("keeps the note when the expense has no description", func() {
			Expect(db.Model(&expenseDatamodel.Expense{}).Where("id = ?", "e-2").
				Update("description", "").Error).To(Succeed())
			note := "Airport ride"
			_, err := svc.Annotate(ctx, 1, "acme", "tx-2", reconciliation.AnnotateDTO{ManualDescription: &note})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(loadTx("tx-2").ManualDescription).To(Equal("Airport ride"))
		})

		It("leaves exactly one link after unlink then link elsewhere", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Unlink(ctx, 1, "acme", "tx-2")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-2"})
			Expect(err).NotTo(HaveOccurred())

			Expect(loadTx("tx-2").LinkedExpenseIDValue()).To(Equal("e-2"))
			first := loadExpense("e-1")
			Expect(first.IsReconciled).To(BeFalse())
			Expect(first.IsPaid).To(BeFalse())
			Expect(first.ReconciledTransactionID).To(BeNil())
			Expect(*loadExpense("e-2").ReconciledTransactionID).To(Equal("tx-2"))
		})

		It("clears the annotations on unlink", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())
			t, err := svc.Unlink(ctx, 1, "acme", "tx-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.IsLinked()).To(BeFalse())

			stored := loadTx("tx-2")
			Expect(stored.ManualCompanyID).To(BeEmpty())
			Expect(stored.ManualReportID).To(BeEmpty())
			Expect(publisher.types()).To(ContainElement(events.EventTypeTransactionUnlinked))
		})

		It("never lets another company unlink", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Unlink(ctx, 1, "globex", "tx-2")
			Expect(err).To(MatchError(errors.ErrCompanyMismatch))
			Expect(loadTx("tx-2").LinkedExpenseIDValue()).To(Equal("e-1"))
			Expect(loadExpense("e-1").IsReconciled).To(BeTrue())
		})

		It("unlinks even when the expense is gone", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Where("id = ?", "e-1").Delete(&expenseDatamodel.Expense{}).Error).To(Succeed())

			_, err = svc.Unlink(ctx, 1, "acme", "tx-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(loadTx("tx-2").IsLinked()).To(BeFalse())
		})

		It("unlinks a link whose owning company is unknown", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Where("id = ?", "e-1").Delete(&expenseDatamodel.Expense{}).Error).To(Succeed())
			Expect(db.Model(&txDatamodel.BankTransaction{}).Where("id = ?", "tx-2").
				Update("manual_company_id", "").Error).To(Succeed())

			stored := loadTx("tx-2")
			Expect(reconciliation.ResolveBadge(stored, nil, "acme").Locked).To(BeFalse())

			_, err = svc.Unlink(ctx, 1, "acme", "tx-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(loadTx("tx-2").IsLinked()).To(BeFalse())
		})

		It("rejects unlinking a transaction that is not linked", func() {
			_, err := svc.Unlink(ctx, 1, "acme", "tx-1")
			Expect(err).To(MatchError(errors.ErrTransactionNotLinked))
		})
	})

	Describe("Annotate", func() {
		BeforeEach(func() {
			importMarch()
			seedExpense("e-1", 1, "acme")
		})

		It("edits annotations of an unlinked transaction", func() {
			desc := " Lunch with client "
			t, err := svc.Annotate(ctx, 1, "acme", "tx-1", reconciliation.AnnotateDTO{ManualDescription: &desc})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.ManualDescription).To(Equal("Lunch with client"))
			Expect(loadTx("tx-1").ManualDescription).To(Equal("Lunch with client"))
		})

		It("is forbidden on a transaction locked to another company", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			rid := "2025-0099"
			_, err = svc.Annotate(ctx, 1, "globex", "tx-2", reconciliation.AnnotateDTO{ManualReportID: &rid})
			Expect(err).To(MatchError(errors.ErrCompanyMismatch))
			Expect(loadTx("tx-2").ManualReportID).To(Equal("2025-0001"))
		})
	})

	Describe("BatchDelete", func() {
		BeforeEach(func() {
			importMarch()
			seedExpense("e-1", 1, "acme")
		})

		It("deletes unlinked transactions", func() {
			n, err := svc.BatchDelete(ctx, 1, reconciliation.BatchDeleteDTO{TransactionIDs: []string{"tx-1", "tx-2"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})

		It("rejects the whole batch when one transaction is linked", func() {
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.BatchDelete(ctx, 1, reconciliation.BatchDeleteDTO{TransactionIDs: []string{"tx-1", "tx-2"}})
			Expect(err).To(MatchError(errors.ErrTransactionLinked))

			var count int64
			Expect(db.Model(&txDatamodel.BankTransaction{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(2)))
		})

		It("rejects an empty selection", func() {
			_, err := svc.BatchDelete(ctx, 1, reconciliation.BatchDeleteDTO{})
			Expect(err).To(MatchError(errors.ErrEmptySelection))
		})
	})

	Describe("Statement", func() {
		It("projects balances and badges for the viewer", func() {
			importMarch()
			seedExpense("e-1", 1, "acme")
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			st, err := svc.Statement(ctx, 1, "globex", reconciliation.Period{Year: 2025, Month: time.March}, reconciliation.StatementFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Rows).To(HaveLen(2))
			Expect(st.Closing.Equal(decimal.NewFromInt(70))).To(BeTrue())

			linked := st.Rows[0]
			Expect(linked.Transaction.ID).To(Equal("tx-2"))
			Expect(linked.BalanceAfter.Equal(decimal.NewFromInt(70))).To(BeTrue())
			Expect(linked.Badge.Locked).To(BeTrue())
			Expect(linked.Badge.ReportID).To(Equal("2025-0001"))
			Expect(st.Rows[1].Badge.Linked).To(BeFalse())
		})

		It("rejects an invalid month", func() {
			_, err := svc.Statement(ctx, 1, "acme", reconciliation.Period{Year: 2025, Month: 13}, reconciliation.StatementFilter{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Candidates", func() {
		It("offers unreconciled expenses of the viewer's company", func() {
			importMarch()
			seedExpense("e-1", 1, "acme")
			seedExpense("e-2", 1, "acme")
			seedExpense("e-3", 1, "globex")
			seedExpense("e-4", 2, "acme")
			_, err := svc.Link(ctx, 1, "acme", "tx-2", reconciliation.LinkDTO{ExpenseID: "e-1"})
			Expect(err).NotTo(HaveOccurred())

			list, err := svc.Candidates(ctx, 1, "acme", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal("e-2"))

			list, err = svc.Candidates(ctx, 1, "acme", "nothing like this")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})

	Describe("Sweep", func() {
		It("repairs one-sided links", func() {
			importMarch()
			seedExpense("e-1", 1, "acme")
			seedExpense("e-2", 1, "acme")

			// tx-1 points at an expense that never existed
			Expect(db.Model(&txDatamodel.BankTransaction{}).Where("id = ?", "tx-1").
				Update("linked_expense_id", "ghost").Error).To(Succeed())
			// tx-2 points at e-1 but e-1 has no back-reference
			Expect(db.Model(&txDatamodel.BankTransaction{}).Where("id = ?", "tx-2").
				Update("linked_expense_id", "e-1").Error).To(Succeed())
			// e-2 claims a transaction that does not point back
			Expect(db.Model(&expenseDatamodel.Expense{}).Where("id = ?", "e-2").
				Updates(map[string]interface{}{"is_reconciled": true, "is_paid": true, "reconciled_transaction_id": "tx-1"}).Error).To(Succeed())

			result, err := svc.Sweep(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reconciliation.SweepResult{LinksCleared: 1, BackRefsRestored: 1, ExpensesCleared: 1}))

			Expect(loadTx("tx-1").IsLinked()).To(BeFalse())
			Expect(*loadExpense("e-1").ReconciledTransactionID).To(Equal("tx-2"))
			Expect(loadExpense("e-2").IsReconciled).To(BeFalse())

			again, err := svc.Sweep(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Total()).To(Equal(0))
		})
	})
})
