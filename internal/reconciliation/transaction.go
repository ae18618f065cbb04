// Package reconciliation links imported bank transactions to the expenses they settle.
package reconciliation

import (
	"time"

	txDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/banktransaction"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/statement"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID                string          `json:"id"`
	OwnerID           int64           `json:"owner_id"`
	FITID             string          `json:"fitid"`
	Type              string          `json:"type,omitempty"`
	PostedAt          time.Time       `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	ManualDescription string          `json:"manual_description,omitempty"`
	ManualReportID    string          `json:"manual_report_id,omitempty"`
	ManualCompanyID   string          `json:"manual_company_id,omitempty"`
	LinkedExpenseID   *string         `json:"linked_expense_id,omitempty"`
	ImportedAt        time.Time       `json:"imported_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (t *Transaction) IsLinked() bool {
	return t.LinkedExpenseID != nil && *t.LinkedExpenseID != ""
}

func (t *Transaction) LinkedExpenseIDValue() string {
	if t.LinkedExpenseID == nil {
		return ""
	}
	return *t.LinkedExpenseID
}

// Link points the transaction at e and copies e's company and report onto the annotations.
// e's description replaces the note unless it is blank.
func (t *Transaction) Link(e *expense.Expense, at time.Time) {
	id := e.ID
	t.LinkedExpenseID = &id
	t.ManualCompanyID = e.CompanyID
	t.ManualReportID = e.ReportIDValue()
	if e.Description != "" {
		t.ManualDescription = e.Description
	}
	t.UpdatedAt = at
}

// Unlink clears the link and every annotation copied from the expense.
func (t *Transaction) Unlink(at time.Time) {
	t.LinkedExpenseID = nil
	t.ManualCompanyID = ""
	t.ManualReportID = ""
	t.ManualDescription = ""
	t.UpdatedAt = at
}

// NewFromRecord builds an unlinked transaction with empty annotations.
func NewFromRecord(ownerID int64, id string, rec statement.Record, importedAt time.Time) *Transaction {
	return &Transaction{
		ID:          id,
		OwnerID:     ownerID,
		FITID:       rec.FITID,
		Type:        rec.Type,
		PostedAt:    rec.Date,
		Amount:      rec.Amount,
		Description: rec.Description,
		ImportedAt:  importedAt,
		UpdatedAt:   importedAt,
	}
}

func ToDataModel(t *Transaction) *txDatamodel.BankTransaction {
	return &txDatamodel.BankTransaction{
		ID:                t.ID,
		OwnerID:           t.OwnerID,
		FITID:             t.FITID,
		Type:              t.Type,
		PostedAt:          t.PostedAt,
		Amount:            t.Amount,
		Description:       t.Description,
		ManualDescription: t.ManualDescription,
		ManualReportID:    t.ManualReportID,
		ManualCompanyID:   t.ManualCompanyID,
		LinkedExpenseID:   t.LinkedExpenseID,
		ImportedAt:        t.ImportedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func FromDataModel(dm *txDatamodel.BankTransaction) *Transaction {
	return &Transaction{
		ID:                dm.ID,
		OwnerID:           dm.OwnerID,
		FITID:             dm.FITID,
		Type:              dm.Type,
		PostedAt:          dm.PostedAt,
		Amount:            dm.Amount,
		Description:       dm.Description,
		ManualDescription: dm.ManualDescription,
		ManualReportID:    dm.ManualReportID,
		ManualCompanyID:   dm.ManualCompanyID,
		LinkedExpenseID:   dm.LinkedExpenseID,
		ImportedAt:        dm.ImportedAt,
		UpdatedAt:         dm.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*txDatamodel.BankTransaction) []*Transaction {
	out := make([]*Transaction, len(rows))
	for i, r := range rows {
		out[i] = FromDataModel(r)
	}
	return out
}
