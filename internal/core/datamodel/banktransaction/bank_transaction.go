package banktransaction

import (
	"time"

	"github.com/shopspring/decimal"
)

type BankTransaction struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)"`
	OwnerID           int64           `gorm:"column:owner_id;not null;uniqueIndex:idx_bank_transactions_owner_fitid"`
	FITID             string          `gorm:"column:fitid;not null;uniqueIndex:idx_bank_transactions_owner_fitid"`
	Type              string          `gorm:"column:type"`
	PostedAt          time.Time       `gorm:"column:posted_at;not null;index"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Description       string          `gorm:"column:description"`
	ManualDescription string          `gorm:"column:manual_description"`
	ManualReportID    string          `gorm:"column:manual_report_id"`
	ManualCompanyID   string          `gorm:"column:manual_company_id"`
	LinkedExpenseID   *string         `gorm:"column:linked_expense_id;index"`
	ImportedAt        time.Time       `gorm:"column:imported_at;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (BankTransaction) TableName() string {
	return "bank_transactions"
}
