// Package dashboard aggregates submitted expenses into the figures shown on the dashboards.
package dashboard

import (
	"sort"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/shopspring/decimal"
)

const (
	topCostCenters = 3
	topCategories  = 5
	historyMonths  = 5
	// legacyCategorySubstitute tags substitute items recorded before substitute types existed.
	legacyCategorySubstitute = "*Substituta"
)

// Query selects the month to summarize. Zero OwnerID and empty CostCenter match everything.
type Query struct {
	Year       int
	Month      time.Month
	CostCenter string
	OwnerID    int64
}

func (q Query) start() time.Time {
	return time.Date(q.Year, q.Month, 1, 0, 0, 0, 0, time.Local)
}

// HistoryStart is the first day of the oldest month in the history series.
func (q Query) HistoryStart() time.Time {
	return q.start().AddDate(0, -(historyMonths - 1), 0)
}

type Bucket struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

type MonthTotal struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type SubstituteSplit struct {
	Substituta decimal.Decimal `json:"substituta"`
	RealSemNF  decimal.Decimal `json:"real_sem_nf"`
}

type Summary struct {
	Year           int              `json:"year"`
	Month          time.Month       `json:"month"`
	Total          decimal.Decimal  `json:"total"`
	TotalPaid      decimal.Decimal  `json:"total_paid"`
	TopCostCenters []Bucket         `json:"top_cost_centers"`
	TopCategories  []Bucket         `json:"top_categories"`
	Substitutes    SubstituteSplit  `json:"substitutes"`
	History        []MonthTotal     `json:"history"`
	Reports        []expense.Report `json:"reports"`
}

// referenceDate places an expense in a month: its closing date when closed, else its own date.
func referenceDate(e *expense.Expense) time.Time {
	if e.ClosingDate != nil {
		return *e.ClosingDate
	}
	return e.Date
}

func isType(e *expense.Expense, t expense.SubstituteType) bool {
	return e.SubstituteType != nil && *e.SubstituteType == t
}

func inMonth(t time.Time, year int, month time.Month) bool {
	return t.Year() == year && t.Month() == month
}

// Summarize computes the dashboard for q from submitted expenses only.
// Money totals skip "Real Sem NF" items; category totals skip "Substituta" items so
// a substitute pair is never counted twice.
func Summarize(expenses []*expense.Expense, q Query) Summary {
	s := Summary{
		Year:      q.Year,
		Month:     q.Month,
		Total:     decimal.Zero,
		TotalPaid: decimal.Zero,
		Substitutes: SubstituteSplit{
			Substituta: decimal.Zero,
			RealSemNF:  decimal.Zero,
		},
	}

	centers := map[string]decimal.Decimal{}
	categories := map[string]decimal.Decimal{}
	var payable []*expense.Expense

	history := make([]MonthTotal, historyMonths)
	for i := range history {
		d := q.HistoryStart().AddDate(0, i, 0)
		history[i] = MonthTotal{Year: d.Year(), Month: d.Month(), Total: decimal.Zero}
	}

	for _, e := range expenses {
		if e.Status != expense.StatusSubmitted {
			continue
		}
		if q.OwnerID != 0 && e.OwnerID != q.OwnerID {
			continue
		}
		if q.CostCenter != "" && e.CostCenter != q.CostCenter {
			continue
		}

		ref := referenceDate(e)
		realSemNF := isType(e, expense.SubstituteTypeRealSemNF)

		if !realSemNF {
			for i := range history {
				if inMonth(ref, history[i].Year, history[i].Month) {
					history[i].Total = history[i].Total.Add(e.Value)
				}
			}
		}

		if !inMonth(ref, q.Year, q.Month) {
			continue
		}

		switch {
		case realSemNF:
			s.Substitutes.RealSemNF = s.Substitutes.RealSemNF.Add(e.Value)
		case isType(e, expense.SubstituteTypeSubstituta):
			s.Substitutes.Substituta = s.Substitutes.Substituta.Add(e.Value)
		}

		if !realSemNF {
			payable = append(payable, e)
			s.Total = s.Total.Add(e.Value)
			if e.IsPaid {
				s.TotalPaid = s.TotalPaid.Add(e.Value)
			}
			cc := e.CostCenter
			if cc == "" {
				cc = "N/D"
			}
			centers[cc] = centers[cc].Add(e.Value)
		}

		if !isType(e, expense.SubstituteTypeSubstituta) && e.Category != legacyCategorySubstitute {
			cat := e.Category
			if cat == "" {
				cat = "Outros"
			}
			categories[cat] = categories[cat].Add(e.Value)
		}
	}

	s.TopCostCenters = top(centers, topCostCenters)
	s.TopCategories = top(categories, topCategories)
	s.History = history
	s.Reports = expense.GroupReports(payable)
	return s
}

// top returns the n largest buckets, ties broken by name.
func top(totals map[string]decimal.Decimal, n int) []Bucket {
	out := make([]Bucket, 0, len(totals))
	for name, total := range totals {
		out = append(out, Bucket{Name: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
