package reconciliation

import (
	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/core/common/validation"
)

type LinkDTO struct {
	ExpenseID string `json:"expense_id"`
}

func (dto LinkDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("expense_id", dto.ExpenseID).Required()
	return v.Validate()
}

// AnnotateDTO edits the manual annotations. Nil fields are left as they are.
type AnnotateDTO struct {
	ManualDescription *string `json:"manual_description"`
	ManualReportID    *string `json:"manual_report_id"`
}

func (dto AnnotateDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.ManualDescription != nil {
		v.Field("manual_description", *dto.ManualDescription).MaxLength(500)
	}
	if dto.ManualReportID != nil {
		v.Field("manual_report_id", *dto.ManualReportID).MaxLength(32)
	}
	return v.Validate()
}

type BatchDeleteDTO struct {
	TransactionIDs []string `json:"transaction_ids"`
}

func (dto BatchDeleteDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("transaction_ids", dto.TransactionIDs).RequiredWithCode(errors.ErrCodeEmptySelection)
	return v.Validate()
}

// ImportSummary reports what an import did. Skipped records are never errors.
type ImportSummary struct {
	Parsed            int `json:"parsed"`
	Inserted          int `json:"inserted"`
	SkippedDuplicates int `json:"skipped_duplicates"`
	SkippedMalformed  int `json:"skipped_malformed"`
	DateFallbacks     int `json:"date_fallbacks"`
}

// SweepResult counts the one-sided links a sweep repaired.
type SweepResult struct {
	LinksCleared     int `json:"links_cleared"`
	BackRefsRestored int `json:"back_refs_restored"`
	ExpensesCleared  int `json:"expenses_cleared"`
}

func (r SweepResult) Total() int {
	return r.LinksCleared + r.BackRefsRestored + r.ExpensesCleared
}
