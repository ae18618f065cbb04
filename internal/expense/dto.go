package expense

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/core/common/validation"
	"github.com/frahmantamala/expense-reimbursement/internal/reportid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CreateExpenseDTO is the payload for creating or editing an expense.
type CreateExpenseDTO struct {
	CostCenter     string          `json:"cost_center"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Value          decimal.Decimal `json:"value"`
	Date           string          `json:"date"`
	Substitute     bool            `json:"substitute"`
	SubstituteType SubstituteType  `json:"substitute_type,omitempty"`
	Fiscal         FiscalInfo      `json:"fiscal"`
}

func (dto CreateExpenseDTO) date() time.Time {
	d, err := parseDate(dto.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

// RequiresFiscalFields is false for substitutes and for documents typed OUTROS.
func (dto CreateExpenseDTO) RequiresFiscalFields() bool {
	return !dto.Substitute && dto.Fiscal.DocumentType != DocumentTypeOther
}

func (dto CreateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("cost_center", dto.CostCenter).Required().MaxLength(120)
	v.Field("category", dto.Category).Required().MaxLength(120)
	v.Field("description", dto.Description).MaxLength(500)
	v.Field("value", dto.Value).NonNegative()
	v.Field("date", dto.Date).RequiredWithCode(errors.ErrCodeInvalidDate).Custom(func(value interface{}) *errors.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := parseDate(s); err != nil {
			return errors.NewValidationFieldError("date", "date must be YYYY-MM-DD", errors.ErrCodeInvalidDate)
		}
		return nil
	})
	if dto.Substitute {
		v.Field("substitute_type", string(dto.SubstituteType)).
			RequiredWithCode(errors.ErrCodeInvalidSubstitute).
			OneOf(errors.ErrCodeInvalidSubstitute, string(SubstituteTypeSubstituta), string(SubstituteTypeRealSemNF))
	}
	if dto.RequiresFiscalFields() {
		v.Field("supplier_name", dto.Fiscal.SupplierName).RequiredWithCode(errors.ErrCodeMissingFiscalField)
		v.Field("supplier_document", dto.Fiscal.SupplierDocument).RequiredWithCode(errors.ErrCodeMissingFiscalField)
		v.Field("receipt_number", dto.Fiscal.ReceiptNumber).RequiredWithCode(errors.ErrCodeMissingFiscalField)
	}
	return v.Validate()
}

type CloseReportDTO struct {
	ExpenseIDs []string `json:"expense_ids"`
}

type RenameReportDTO struct {
	ReportID string `json:"report_id"`
}

func (dto RenameReportDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("report_id", dto.ReportID).
		RequiredWithCode(errors.ErrCodeInvalidReportID).
		Matches(reportid.StrictPattern, errors.ErrCodeInvalidReportID)
	return v.Validate()
}

type AuditDTO struct {
	Decisions map[string]AdminStatus `json:"decisions"`
}

func (dto AuditDTO) Validate() *errors.AppError {
	if len(dto.Decisions) == 0 {
		return errors.NewValidationFieldError("decisions", "at least one decision is required", errors.ErrCodeInvalidAuditDecision)
	}
	for id, d := range dto.Decisions {
		if d != AdminStatusApproved && d != AdminStatusRejected {
			return errors.NewValidationFieldError("decisions."+id, "decision must be approved or rejected", errors.ErrCodeInvalidAuditDecision)
		}
	}
	return nil
}

type BatchDeleteDTO struct {
	IDs []string `json:"ids"`
}

// ReportFilter narrows the grouped report listing. Zero values match everything.
type ReportFilter struct {
	CostCenter string
	OwnerID    int64
	Query      string
	Month      int
	Year       int
}
