package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeReportClosed        = "report.closed"
	EventTypeReportSubmitted     = "report.submitted"
	EventTypeReportPaid          = "report.paid"
	EventTypeReportReopened      = "report.reopened"
	EventTypeExpensesDeleted     = "expenses.deleted"
	EventTypeTransactionLinked   = "transaction.linked"
	EventTypeTransactionUnlinked = "transaction.unlinked"
	EventTypeStatementImported   = "statement.imported"
)

// DomainEventTypes lists every event the services publish.
var DomainEventTypes = []string{
	EventTypeReportClosed,
	EventTypeReportSubmitted,
	EventTypeReportPaid,
	EventTypeReportReopened,
	EventTypeExpensesDeleted,
	EventTypeTransactionLinked,
	EventTypeTransactionUnlinked,
	EventTypeStatementImported,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// ReportEvent covers every report-level transition.
type ReportEvent struct {
	BaseEvent
	CompanyID  string   `json:"company_id"`
	OwnerID    int64    `json:"owner_id"`
	ReportID   string   `json:"report_id"`
	ExpenseIDs []string `json:"expense_ids"`
}

func NewReportEvent(eventType, companyID string, ownerID int64, reportID string, expenseIDs []string) *ReportEvent {
	return &ReportEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"company_id":  companyID,
			"owner_id":    ownerID,
			"report_id":   reportID,
			"expense_ids": expenseIDs,
		}),
		CompanyID:  companyID,
		OwnerID:    ownerID,
		ReportID:   reportID,
		ExpenseIDs: expenseIDs,
	}
}

// ExpensesDeletedEvent carries the attachment urls left behind by deleted expenses.
type ExpensesDeletedEvent struct {
	BaseEvent
	OwnerID        int64    `json:"owner_id"`
	ExpenseIDs     []string `json:"expense_ids"`
	AttachmentURLs []string `json:"attachment_urls"`
}

func NewExpensesDeletedEvent(ownerID int64, expenseIDs, attachmentURLs []string) *ExpensesDeletedEvent {
	return &ExpensesDeletedEvent{
		BaseEvent: newBase(EventTypeExpensesDeleted, map[string]interface{}{
			"owner_id":        ownerID,
			"expense_ids":     expenseIDs,
			"attachment_urls": attachmentURLs,
		}),
		OwnerID:        ownerID,
		ExpenseIDs:     expenseIDs,
		AttachmentURLs: attachmentURLs,
	}
}

type TransactionLinkEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	ExpenseID     string `json:"expense_id"`
	CompanyID     string `json:"company_id"`
}

func NewTransactionLinkEvent(eventType, transactionID, expenseID, companyID string) *TransactionLinkEvent {
	return &TransactionLinkEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{
			"transaction_id": transactionID,
			"expense_id":     expenseID,
			"company_id":     companyID,
		}),
		TransactionID: transactionID,
		ExpenseID:     expenseID,
		CompanyID:     companyID,
	}
}

type StatementImportedEvent struct {
	BaseEvent
	OwnerID  int64 `json:"owner_id"`
	Inserted int   `json:"inserted"`
	Skipped  int   `json:"skipped"`
}

func NewStatementImportedEvent(ownerID int64, inserted, skipped int) *StatementImportedEvent {
	return &StatementImportedEvent{
		BaseEvent: newBase(EventTypeStatementImported, map[string]interface{}{
			"owner_id": ownerID,
			"inserted": inserted,
			"skipped":  skipped,
		}),
		OwnerID:  ownerID,
		Inserted: inserted,
		Skipped:  skipped,
	}
}
