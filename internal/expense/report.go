package expense

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/reportid"
	"github.com/shopspring/decimal"
)

// Report is the read-side view of every expense sharing one report id and owner.
// It is never stored.
type Report struct {
	ReportID    string          `json:"report_id"`
	OwnerID     int64           `json:"owner_id"`
	CompanyID   string          `json:"company_id"`
	CostCenter  string          `json:"cost_center"`
	Status      Status          `json:"status"`
	Substitute  bool            `json:"substitute"`
	ClosingDate *time.Time      `json:"closing_date,omitempty"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	RealTotal   decimal.Decimal `json:"real_total"`
	IsPaid      bool            `json:"is_paid"`
	ExpenseIDs  []string        `json:"expense_ids"`
}

type reportKey struct {
	reportID string
	ownerID  int64
}

// GroupReports groups expenses by (report id, owner). Expenses without a report id are skipped.
// For substitute reports Total only counts Substituta items; RealTotal always counts everything.
// The result is sorted by report id, newest first.
func GroupReports(expenses []*Expense) []Report {
	index := make(map[reportKey]int)
	var reports []Report

	for _, e := range expenses {
		rid := e.ReportIDValue()
		if rid == "" {
			continue
		}
		key := reportKey{reportID: rid, ownerID: e.OwnerID}
		i, ok := index[key]
		if !ok {
			reports = append(reports, Report{
				ReportID:   rid,
				OwnerID:    e.OwnerID,
				CompanyID:  e.CompanyID,
				CostCenter: e.CostCenter,
				Status:     StatusClosed,
				Substitute: strings.HasSuffix(rid, reportid.SubstituteSuffix),
				IsPaid:     true,
				Total:      decimal.Zero,
				RealTotal:  decimal.Zero,
			})
			i = len(reports) - 1
			index[key] = i
		}

		r := &reports[i]
		r.ItemCount++
		r.ExpenseIDs = append(r.ExpenseIDs, e.ID)
		r.RealTotal = r.RealTotal.Add(e.Value)
		if !r.Substitute || (e.SubstituteType != nil && *e.SubstituteType == SubstituteTypeSubstituta) {
			r.Total = r.Total.Add(e.Value)
		}
		if !e.IsPaid {
			r.IsPaid = false
		}
		if e.Status == StatusSubmitted {
			r.Status = StatusSubmitted
		}
		if e.ClosingDate != nil && (r.ClosingDate == nil || e.ClosingDate.After(*r.ClosingDate)) {
			cd := *e.ClosingDate
			r.ClosingDate = &cd
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].ReportID == reports[j].ReportID {
			return reports[i].OwnerID < reports[j].OwnerID
		}
		return reportid.Less(reports[j].ReportID, reports[i].ReportID)
	})
	return reports
}

// FilterReports keeps the reports matching every non-zero field of f.
// Month and year apply to the closing date.
func FilterReports(reports []Report, f ReportFilter) []Report {
	out := make([]Report, 0, len(reports))
	q := strings.ToLower(strings.TrimSpace(f.Query))
	for _, r := range reports {
		if f.CostCenter != "" && r.CostCenter != f.CostCenter {
			continue
		}
		if f.OwnerID != 0 && r.OwnerID != f.OwnerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.ReportID), q) {
			continue
		}
		if f.Month != 0 || f.Year != 0 {
			if r.ClosingDate == nil {
				continue
			}
			if f.Month != 0 && int(r.ClosingDate.Month()) != f.Month {
				continue
			}
			if f.Year != 0 && r.ClosingDate.Year() != f.Year {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
