package dashboard_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/dashboard"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
)

func submitted(id string, ownerID int64, cc, category, value string, closed time.Time) *expense.Expense {
	reportID := "2025-0001"
	return &expense.Expense{
		ID: id, OwnerID: ownerID, CompanyID: "acme", CostCenter: cc, Category: category,
		Value: decimal.RequireFromString(value), Date: closed.AddDate(0, 0, -3),
		Status: expense.StatusSubmitted, ReportID: &reportID, ClosingDate: &closed,
	}
}

func withType(e *expense.Expense, t expense.SubstituteType) *expense.Expense {
	e.SubstituteType = &t
	return e
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ = Describe("Summarize", func() {
	march := time.Date(2025, 3, 15, 0, 0, 0, 0, time.Local)
	q := dashboard.Query{Year: 2025, Month: time.March}

	It("counts submitted items only", func() {
		open := submitted("open", 1, "CC-1", "Food", "99.00", march)
		open.Status = expense.StatusClosed

		s := dashboard.Summarize([]*expense.Expense{
			submitted("a", 1, "CC-1", "Food", "10.00", march),
			open,
		}, q)
		Expect(s.Total.Equal(dec("10.00"))).To(BeTrue())
	})

	It("keeps substitute pairs out of double counting", func() {
		s := dashboard.Summarize([]*expense.Expense{
			withType(submitted("sub", 1, "CC-1", "Substitutes", "50.00", march), expense.SubstituteTypeSubstituta),
			withType(submitted("real", 1, "CC-1", "Taxi", "45.00", march), expense.SubstituteTypeRealSemNF),
			submitted("plain", 1, "CC-1", "Food", "5.00", march),
		}, q)

		Expect(s.Total.Equal(dec("55.00"))).To(BeTrue())
		Expect(s.Substitutes.Substituta.Equal(dec("50.00"))).To(BeTrue())
		Expect(s.Substitutes.RealSemNF.Equal(dec("45.00"))).To(BeTrue())

		names := []string{}
		for _, b := range s.TopCategories {
			names = append(names, b.Name)
		}
		Expect(names).To(Equal([]string{"Taxi", "Food"}))
		Expect(s.Reports).To(HaveLen(1))
	})

	It("ranks cost centers and tracks paid totals", func() {
		paid := submitted("p", 1, "CC-2", "Food", "30.00", march)
		paid.IsPaid = true

		s := dashboard.Summarize([]*expense.Expense{
			submitted("a", 1, "CC-1", "Food", "10.00", march),
			paid,
			submitted("b", 1, "CC-3", "Food", "20.00", march),
			submitted("c", 1, "CC-4", "Food", "1.00", march),
		}, q)

		Expect(s.TotalPaid.Equal(dec("30.00"))).To(BeTrue())
		Expect(s.TopCostCenters).To(HaveLen(3))
		Expect(s.TopCostCenters[0].Name).To(Equal("CC-2"))
		Expect(s.TopCostCenters[2].Name).To(Equal("CC-1"))
	})

	It("builds a five month history ending at the selected month", func() {
		january := time.Date(2025, 1, 10, 0, 0, 0, 0, time.Local)
		s := dashboard.Summarize([]*expense.Expense{
			submitted("a", 1, "CC-1", "Food", "10.00", march),
			submitted("b", 1, "CC-1", "Food", "7.00", january),
		}, q)

		Expect(s.History).To(HaveLen(5))
		Expect(s.History[0].Month).To(Equal(time.November))
		Expect(s.History[0].Year).To(Equal(2024))
		Expect(s.History[2].Total.Equal(dec("7.00"))).To(BeTrue())
		Expect(s.History[4].Total.Equal(dec("10.00"))).To(BeTrue())
		Expect(s.Total.Equal(dec("10.00"))).To(BeTrue())
	})

	It("applies owner and cost center filters", func() {
		fq := q
		fq.OwnerID = 2
		fq.CostCenter = "CC-1"
		s := dashboard.Summarize([]*expense.Expense{
			submitted("a", 1, "CC-1", "Food", "10.00", march),
			submitted("b", 2, "CC-1", "Food", "3.00", march),
			submitted("c", 2, "CC-2", "Food", "4.00", march),
		}, fq)
		Expect(s.Total.Equal(dec("3.00"))).To(BeTrue())
	})
})

type stubRepository struct {
	list  []*expense.Expense
	since time.Time
	err   error
}

func (r *stubRepository) ListByOwner(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error) {
	return r.list, r.err
}

func (r *stubRepository) ListSince(ctx context.Context, since time.Time, f dashboard.Filter) ([]*expense.Expense, error) {
	r.since = since
	return r.list, r.err
}

var _ = Describe("Service", func() {
	var (
		repo    *stubRepository
		service *dashboard.Service
	)

	BeforeEach(func() {
		repo = &stubRepository{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = dashboard.NewService(repo, logger)
	})

	It("requires a company for the personal dashboard", func() {
		_, err := service.Personal(context.Background(), 1, "", dashboard.Query{})
		Expect(err).To(MatchError(errors.ErrNoCompanySelected))
	})

	It("rejects an out of range month", func() {
		_, err := service.Admin(context.Background(), "acme", dashboard.Query{Year: 2025, Month: 13})
		Expect(err).To(HaveOccurred())
		appErr, ok := errors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
	})

	It("reads the admin window from the start of the history", func() {
		_, err := service.Admin(context.Background(), "acme", dashboard.Query{Year: 2025, Month: time.March})
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.since).To(Equal(time.Date(2024, 11, 1, 0, 0, 0, 0, time.Local)))
	})
})
