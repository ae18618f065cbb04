package reconciliation

import "github.com/frahmantamala/expense-reimbursement/internal/expense"

// Badge describes how a transaction's link looks to a viewer working in one company.
type Badge struct {
	Linked    bool   `json:"linked"`
	Locked    bool   `json:"locked"`
	CompanyID string `json:"company_id,omitempty"`
	ReportID  string `json:"report_id,omitempty"`
	ExpenseID string `json:"expense_id,omitempty"`
}

// OwnerCompany is the company that owns t's link: the annotated one, else the linked expense's.
// linked may be nil when the expense is gone or not loaded.
func OwnerCompany(t *Transaction, linked *expense.Expense) string {
	if t.ManualCompanyID != "" {
		return t.ManualCompanyID
	}
	if linked != nil {
		return linked.CompanyID
	}
	return ""
}

// LockedFor reports whether viewerCompany may not change t's link.
// A link whose owning company is unknown (expense gone, no annotation) stays editable.
func LockedFor(t *Transaction, linked *expense.Expense, viewerCompany string) bool {
	owner := OwnerCompany(t, linked)
	return owner != "" && owner != viewerCompany
}

// ResolveBadge computes the badge. A linked transaction owned by another company is locked:
// its report id is shown but its link cannot be changed from viewerCompany.
func ResolveBadge(t *Transaction, linked *expense.Expense, viewerCompany string) Badge {
	if !t.IsLinked() {
		return Badge{}
	}
	owner := OwnerCompany(t, linked)
	reportID := t.ManualReportID
	if reportID == "" && linked != nil {
		reportID = linked.ReportIDValue()
	}
	return Badge{
		Linked:    true,
		Locked:    LockedFor(t, linked, viewerCompany),
		CompanyID: owner,
		ReportID:  reportID,
		ExpenseID: t.LinkedExpenseIDValue(),
	}
}
