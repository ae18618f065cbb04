package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
)

type Status string

const (
	StatusActive     Status = "Active"
	StatusSubstitute Status = "Substitute"
	StatusClosed     Status = "Closed"
	StatusSubmitted  Status = "Submitted"
)

type SubstituteType string

const (
	// SubstituteTypeSubstituta is the payable half of a substitute pair.
	SubstituteTypeSubstituta SubstituteType = "Substituta"
	// SubstituteTypeRealSemNF records the real expense that had no fiscal receipt. Informational only.
	SubstituteTypeRealSemNF SubstituteType = "Real Sem NF"
)

type AdminStatus string

const (
	AdminStatusApproved AdminStatus = "approved"
	AdminStatusRejected AdminStatus = "rejected"
)

// DocumentTypeOther exempts an expense from fiscal field checks.
const DocumentTypeOther = "OUTROS"

type FiscalInfo struct {
	SupplierName     string `json:"supplier_name"`
	SupplierDocument string `json:"supplier_document"`
	DocumentType     string `json:"document_type"`
	ReceiptType      string `json:"receipt_type"`
	ReceiptNumber    string `json:"receipt_number"`
}

type Expense struct {
	ID                      string          `json:"id"`
	OwnerID                 int64           `json:"owner_id"`
	CompanyID               string          `json:"company_id"`
	CostCenter              string          `json:"cost_center"`
	Category                string          `json:"category"`
	Description             string          `json:"description"`
	Value                   decimal.Decimal `json:"value"`
	Date                    time.Time       `json:"date"`
	Status                  Status          `json:"status"`
	SubstituteType          *SubstituteType `json:"substitute_type,omitempty"`
	ReportID                *string         `json:"report_id,omitempty"`
	ClosingDate             *time.Time      `json:"closing_date,omitempty"`
	IsPaid                  bool            `json:"is_paid"`
	AdminStatus             *AdminStatus    `json:"admin_status,omitempty"`
	IsReconciled            bool            `json:"is_reconciled"`
	ReconciledTransactionID *string         `json:"reconciled_transaction_id,omitempty"`
	ReconciledDate          *time.Time      `json:"reconciled_date,omitempty"`
	AttachmentURL           *string         `json:"attachment_url,omitempty"`
	Fiscal                  FiscalInfo      `json:"fiscal"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func (e *Expense) IsOpen() bool {
	return e.Status == StatusActive || e.Status == StatusSubstitute
}

// HasSubstituteMarker reports whether the expense was recorded as a substitute,
// whatever its current status.
func (e *Expense) HasSubstituteMarker() bool {
	return e.Status == StatusSubstitute || e.SubstituteType != nil
}

func (e *Expense) IsPayable() bool {
	return e.SubstituteType == nil || *e.SubstituteType == SubstituteTypeSubstituta
}

func (e *Expense) ReportIDValue() string {
	if e.ReportID == nil {
		return ""
	}
	return *e.ReportID
}

func (e *Expense) Close(reportID string, at time.Time) error {
	if !e.IsOpen() {
		return errors.ErrInvalidExpenseStatus
	}
	e.Status = StatusClosed
	e.ReportID = &reportID
	e.ClosingDate = &at
	e.IsPaid = false
	e.UpdatedAt = at
	return nil
}

func (e *Expense) Submit(at time.Time) {
	e.Status = StatusSubmitted
	e.ClosingDate = &at
	e.UpdatedAt = at
}

func (e *Expense) MarkPaid(at time.Time) {
	e.IsPaid = true
	e.UpdatedAt = at
}

func (e *Expense) SetAudit(decision AdminStatus, at time.Time) {
	e.AdminStatus = &decision
	e.UpdatedAt = at
}

// Reopen walks the expense one phase back. A submitted report returns to Closed;
// a closed one returns to its entry state and loses its report id.
func (e *Expense) Reopen(reportSubmitted bool, at time.Time) {
	e.IsPaid = false
	e.AdminStatus = nil
	e.UpdatedAt = at
	if reportSubmitted {
		e.Status = StatusClosed
		return
	}
	e.Status = StatusActive
	if e.SubstituteType != nil {
		e.Status = StatusSubstitute
	}
	e.ReportID = nil
	e.ClosingDate = nil
}

func (e *Expense) RenameReport(reportID string, at time.Time) {
	e.ReportID = &reportID
	e.UpdatedAt = at
}

// MarkReconciled records the bank transaction that settled the expense. Settling pays it.
func (e *Expense) MarkReconciled(transactionID string, at time.Time) {
	e.IsReconciled = true
	e.IsPaid = true
	e.ReconciledTransactionID = &transactionID
	e.ReconciledDate = &at
	e.UpdatedAt = at
}

func (e *Expense) ClearReconciliation(at time.Time) {
	e.IsReconciled = false
	e.IsPaid = false
	e.ReconciledTransactionID = nil
	e.ReconciledDate = nil
	e.UpdatedAt = at
}

// CanDelete enforces the reconciled guard. It cannot be overridden.
func (e *Expense) CanDelete() error {
	if e.IsReconciled {
		return errors.ErrExpenseReconciled
	}
	return nil
}

func NewExpense(ownerID int64, companyID, id string, dto CreateExpenseDTO, now time.Time) *Expense {
	e := &Expense{
		ID:        id,
		OwnerID:   ownerID,
		CompanyID: companyID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.apply(dto)
	return e
}

// apply copies the editable fields of dto onto e.
func (e *Expense) apply(dto CreateExpenseDTO) {
	e.CostCenter = dto.CostCenter
	e.Category = dto.Category
	e.Description = dto.Description
	e.Value = dto.Value
	e.Date = NormalizeDate(dto.date())
	e.Fiscal = dto.Fiscal
	e.SubstituteType = nil
	if dto.Substitute {
		st := dto.SubstituteType
		e.SubstituteType = &st
	}
	if e.IsOpen() {
		e.Status = StatusActive
		if dto.Substitute {
			e.Status = StatusSubstitute
		}
	}
}

// NormalizeDate pins a calendar date to noon so timezone shifts never move it to another day.
func NormalizeDate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, d.Location())
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	dm := &expenseDatamodel.Expense{
		ID:                      e.ID,
		OwnerID:                 e.OwnerID,
		CompanyID:               e.CompanyID,
		CostCenter:              e.CostCenter,
		Category:                e.Category,
		Description:             e.Description,
		Value:                   e.Value,
		ExpenseDate:             e.Date,
		Status:                  string(e.Status),
		ReportID:                e.ReportID,
		ClosingDate:             e.ClosingDate,
		IsPaid:                  e.IsPaid,
		IsReconciled:            e.IsReconciled,
		ReconciledTransactionID: e.ReconciledTransactionID,
		ReconciledDate:          e.ReconciledDate,
		AttachmentURL:           e.AttachmentURL,
		SupplierName:            e.Fiscal.SupplierName,
		SupplierDocument:        e.Fiscal.SupplierDocument,
		DocumentType:            e.Fiscal.DocumentType,
		ReceiptType:             e.Fiscal.ReceiptType,
		ReceiptNumber:           e.Fiscal.ReceiptNumber,
		CreatedAt:               e.CreatedAt,
		UpdatedAt:               e.UpdatedAt,
	}
	if e.SubstituteType != nil {
		s := string(*e.SubstituteType)
		dm.SubstituteType = &s
	}
	if e.AdminStatus != nil {
		s := string(*e.AdminStatus)
		dm.AdminStatus = &s
	}
	return dm
}

func FromDataModel(dm *expenseDatamodel.Expense) *Expense {
	e := &Expense{
		ID:                      dm.ID,
		OwnerID:                 dm.OwnerID,
		CompanyID:               dm.CompanyID,
		CostCenter:              dm.CostCenter,
		Category:                dm.Category,
		Description:             dm.Description,
		Value:                   dm.Value,
		Date:                    dm.ExpenseDate,
		Status:                  Status(dm.Status),
		ReportID:                dm.ReportID,
		ClosingDate:             dm.ClosingDate,
		IsPaid:                  dm.IsPaid,
		IsReconciled:            dm.IsReconciled,
		ReconciledTransactionID: dm.ReconciledTransactionID,
		ReconciledDate:          dm.ReconciledDate,
		AttachmentURL:           dm.AttachmentURL,
		Fiscal: FiscalInfo{
			SupplierName:     dm.SupplierName,
			SupplierDocument: dm.SupplierDocument,
			DocumentType:     dm.DocumentType,
			ReceiptType:      dm.ReceiptType,
			ReceiptNumber:    dm.ReceiptNumber,
		},
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
	if dm.SubstituteType != nil {
		st := SubstituteType(*dm.SubstituteType)
		e.SubstituteType = &st
	}
	if dm.AdminStatus != nil {
		as := AdminStatus(*dm.AdminStatus)
		e.AdminStatus = &as
	}
	return e
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}
