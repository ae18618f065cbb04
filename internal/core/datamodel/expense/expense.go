package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID                      string          `gorm:"primaryKey;type:varchar(36)"`
	OwnerID                 int64           `gorm:"column:owner_id;not null;index:idx_expenses_owner_company"`
	CompanyID               string          `gorm:"column:company_id;not null;index:idx_expenses_owner_company;index:idx_expenses_company_report"`
	CostCenter              string          `gorm:"column:cost_center;not null"`
	Category                string          `gorm:"column:category;not null"`
	Description             string          `gorm:"column:description"`
	Value                   decimal.Decimal `gorm:"column:value;type:decimal(18,2);not null"`
	ExpenseDate             time.Time       `gorm:"column:expense_date;not null;index"`
	Status                  string          `gorm:"column:status;not null"`
	SubstituteType          *string         `gorm:"column:substitute_type"`
	ReportID                *string         `gorm:"column:report_id;index:idx_expenses_company_report"`
	ClosingDate             *time.Time      `gorm:"column:closing_date"`
	IsPaid                  bool            `gorm:"column:is_paid;not null;default:false"`
	AdminStatus             *string         `gorm:"column:admin_status"`
	IsReconciled            bool            `gorm:"column:is_reconciled;not null;default:false"`
	ReconciledTransactionID *string         `gorm:"column:reconciled_transaction_id"`
	ReconciledDate          *time.Time      `gorm:"column:reconciled_date"`
	AttachmentURL           *string         `gorm:"column:attachment_url"`
	SupplierName            string          `gorm:"column:supplier_name"`
	SupplierDocument        string          `gorm:"column:supplier_document"`
	DocumentType            string          `gorm:"column:document_type"`
	ReceiptType             string          `gorm:"column:receipt_type"`
	ReceiptNumber           string          `gorm:"column:receipt_number"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}
