package reconciliation_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation"
)

func tx(id string, day time.Time, amount string) *reconciliation.Transaction {
	return &reconciliation.Transaction{
		ID:          id,
		OwnerID:     1,
		FITID:       id,
		PostedAt:    day,
		Amount:      decimal.RequireFromString(amount),
		Description: "PIX " + id,
	}
}

func on(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 12, 0, 0, 0, time.UTC)
}

var _ = Describe("RunningBalance", func() {
	txs := []*reconciliation.Transaction{
		tx("c", on(time.March, 20), "50"),
		tx("a", on(time.March, 5), "100"),
		tx("b", on(time.March, 6), "-30"),
	}

	It("accumulates in date order", func() {
		entries := reconciliation.RunningBalance(txs)
		Expect(entries).To(HaveLen(3))

		var balances []string
		for _, e := range entries {
			balances = append(balances, e.BalanceAfter.String())
		}
		Expect(balances).To(Equal([]string{"100", "70", "120"}))
		Expect(txs[0].ID).To(Equal("c"), "input order must be preserved")
	})

	It("breaks date ties by fitid", func() {
		entries := reconciliation.RunningBalance([]*reconciliation.Transaction{
			tx("z", on(time.March, 5), "1"),
			tx("y", on(time.March, 5), "2"),
		})
		Expect(entries[0].Transaction.ID).To(Equal("y"))
	})

	Describe("BuildStatement", func() {
		It("carries the balance into a later empty month", func() {
			st := reconciliation.BuildStatement(reconciliation.RunningBalance(txs),
				reconciliation.Period{Year: 2025, Month: time.April}, reconciliation.StatementFilter{})
			Expect(st.Opening.Equal(decimal.NewFromInt(120))).To(BeTrue())
			Expect(st.Closing.Equal(decimal.NewFromInt(120))).To(BeTrue())
			Expect(st.Rows).To(BeEmpty())
		})

		It("totals the month and lists rows newest first", func() {
			st := reconciliation.BuildStatement(reconciliation.RunningBalance(txs),
				reconciliation.Period{Year: 2025, Month: time.March}, reconciliation.StatementFilter{})
			Expect(st.Opening.IsZero()).To(BeTrue())
			Expect(st.Inflow.Equal(decimal.NewFromInt(150))).To(BeTrue())
			Expect(st.Outflow.Equal(decimal.NewFromInt(-30))).To(BeTrue())
			Expect(st.Closing.Equal(decimal.NewFromInt(120))).To(BeTrue())
			Expect(st.Rows).To(HaveLen(3))
			Expect(st.Rows[0].Transaction.ID).To(Equal("c"))
		})

		It("uses the last balance before the month as opening", func() {
			all := append([]*reconciliation.Transaction{tx("d", on(time.April, 2), "-20")}, txs...)
			st := reconciliation.BuildStatement(reconciliation.RunningBalance(all),
				reconciliation.Period{Year: 2025, Month: time.April}, reconciliation.StatementFilter{})
			Expect(st.Opening.Equal(decimal.NewFromInt(120))).To(BeTrue())
			Expect(st.Closing.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(st.Rows[0].BalanceAfter.Equal(decimal.NewFromInt(100))).To(BeTrue())
		})

		It("filters rows by amount without changing totals", func() {
			st := reconciliation.BuildStatement(reconciliation.RunningBalance(txs),
				reconciliation.Period{Year: 2025, Month: time.March}, reconciliation.StatementFilter{Amount: "30,00"})
			Expect(st.Rows).To(HaveLen(1))
			Expect(st.Rows[0].Transaction.ID).To(Equal("b"))
			Expect(st.Closing.Equal(decimal.NewFromInt(120))).To(BeTrue())
		})

		It("filters rows by description", func() {
			st := reconciliation.BuildStatement(reconciliation.RunningBalance(txs),
				reconciliation.Period{Year: 2025, Month: time.March}, reconciliation.StatementFilter{Search: "pix a"})
			Expect(st.Rows).To(HaveLen(1))
			Expect(st.Rows[0].Transaction.ID).To(Equal("a"))
		})
	})
})

var _ = Describe("ResolveBadge", func() {
	linkedTo := func(expenseID, manualCompany string) *reconciliation.Transaction {
		t := tx("t", on(time.March, 5), "-10")
		t.LinkedExpenseID = &expenseID
		t.ManualCompanyID = manualCompany
		return t
	}
	rid := "2025-0007"
	acmeExpense := &expense.Expense{ID: "e-1", CompanyID: "acme", ReportID: &rid}

	It("is empty for an unlinked transaction", func() {
		Expect(reconciliation.ResolveBadge(tx("t", on(time.March, 5), "1"), nil, "acme")).To(Equal(reconciliation.Badge{}))
	})

	It("is unlocked inside the owning company", func() {
		b := reconciliation.ResolveBadge(linkedTo("e-1", ""), acmeExpense, "acme")
		Expect(b.Linked).To(BeTrue())
		Expect(b.Locked).To(BeFalse())
		Expect(b.ReportID).To(Equal("2025-0007"))
	})

	It("locks the link for viewers in another company", func() {
		b := reconciliation.ResolveBadge(linkedTo("e-1", ""), acmeExpense, "globex")
		Expect(b.Locked).To(BeTrue())
		Expect(b.CompanyID).To(Equal("acme"))
		Expect(b.ReportID).To(Equal("2025-0007"))
	})

	It("prefers the annotated company and works without the expense", func() {
		b := reconciliation.ResolveBadge(linkedTo("gone", "globex"), nil, "acme")
		Expect(b.Locked).To(BeTrue())
		Expect(b.CompanyID).To(Equal("globex"))
	})
})
