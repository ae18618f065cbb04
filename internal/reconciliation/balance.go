package reconciliation

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a transaction with the account balance right after it.
type Entry struct {
	Transaction  *Transaction    `json:"transaction"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Badge        Badge           `json:"badge"`
}

// Period is one calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func (p Period) start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Before reports whether t falls strictly before the first day of the period.
func (p Period) Before(t time.Time) bool {
	return t.Before(p.start(t.Location()))
}

// RunningBalance orders txs by date and accumulates their amounts. Ties keep fitid order.
// txs is not modified.
func RunningBalance(txs []*Transaction) []Entry {
	sorted := make([]*Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PostedAt.Equal(sorted[j].PostedAt) {
			return sorted[i].PostedAt.Before(sorted[j].PostedAt)
		}
		return sorted[i].FITID < sorted[j].FITID
	})

	entries := make([]Entry, len(sorted))
	balance := decimal.Zero
	for i, t := range sorted {
		balance = balance.Add(t.Amount)
		entries[i] = Entry{Transaction: t, BalanceAfter: balance}
	}
	return entries
}

// StatementFilter narrows the rows of a statement. Totals ignore it.
type StatementFilter struct {
	// Search matches the bank or manual description, case-insensitive.
	Search string
	// Amount matches a substring of the absolute amount with two decimals; "," is read as ".".
	Amount string
}

func (f StatementFilter) match(t *Transaction) bool {
	if f.Amount != "" {
		needle := strings.ReplaceAll(strings.TrimSpace(f.Amount), ",", ".")
		if !strings.Contains(t.Amount.Abs().StringFixed(2), needle) {
			return false
		}
	}
	if f.Search != "" {
		term := strings.ToLower(strings.TrimSpace(f.Search))
		if !strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.ManualDescription), term) {
			return false
		}
	}
	return true
}

type Statement struct {
	Period  Period          `json:"period"`
	Opening decimal.Decimal `json:"opening_balance"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Closing decimal.Decimal `json:"closing_balance"`
	Rows    []Entry         `json:"rows"`
}

// BuildStatement projects the running balance onto one month. Opening is the balance after the
// last transaction dated before the month, zero if there is none. Rows are newest first.
func BuildStatement(entries []Entry, period Period, filter StatementFilter) Statement {
	st := Statement{
		Period:  period,
		Opening: decimal.Zero,
		Inflow:  decimal.Zero,
		Outflow: decimal.Zero,
		Rows:    []Entry{},
	}

	for _, e := range entries {
		t := e.Transaction
		switch {
		case period.Before(t.PostedAt):
			st.Opening = e.BalanceAfter
		case period.Contains(t.PostedAt):
			if t.Amount.IsPositive() {
				st.Inflow = st.Inflow.Add(t.Amount)
			} else {
				st.Outflow = st.Outflow.Add(t.Amount)
			}
			if filter.match(t) {
				st.Rows = append(st.Rows, e)
			}
		}
	}

	st.Closing = st.Opening.Add(st.Inflow).Add(st.Outflow)
	for i, j := 0, len(st.Rows)-1; i < j; i, j = i+1, j-1 {
		st.Rows[i], st.Rows[j] = st.Rows[j], st.Rows[i]
	}
	return st
}
