package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/frahmantamala/expense-reimbursement/internal/dashboard"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var expenseColumns = []string{
	"id", "owner_id", "company_id", "cost_center", "category", "description", "value", "expense_date",
	"status", "substitute_type", "report_id", "closing_date", "is_paid", "admin_status", "is_reconciled",
}

// expenseRow is the read-only projection the dashboards need.
type expenseRow struct {
	ID             string          `db:"id"`
	OwnerID        int64           `db:"owner_id"`
	CompanyID      string          `db:"company_id"`
	CostCenter     string          `db:"cost_center"`
	Category       string          `db:"category"`
	Description    *string         `db:"description"`
	Value          decimal.Decimal `db:"value"`
	ExpenseDate    time.Time       `db:"expense_date"`
	Status         string          `db:"status"`
	SubstituteType *string         `db:"substitute_type"`
	ReportID       *string         `db:"report_id"`
	ClosingDate    *time.Time      `db:"closing_date"`
	IsPaid         bool            `db:"is_paid"`
	AdminStatus    *string         `db:"admin_status"`
	IsReconciled   bool            `db:"is_reconciled"`
}

func (r expenseRow) toDomain() *expense.Expense {
	e := &expense.Expense{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		CompanyID:    r.CompanyID,
		CostCenter:   r.CostCenter,
		Category:     r.Category,
		Value:        r.Value,
		Date:         r.ExpenseDate,
		Status:       expense.Status(r.Status),
		ReportID:     r.ReportID,
		ClosingDate:  r.ClosingDate,
		IsPaid:       r.IsPaid,
		IsReconciled: r.IsReconciled,
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.SubstituteType != nil {
		st := expense.SubstituteType(*r.SubstituteType)
		e.SubstituteType = &st
	}
	if r.AdminStatus != nil {
		as := expense.AdminStatus(*r.AdminStatus)
		e.AdminStatus = &as
	}
	return e
}

type ExpenseReader struct {
	db *sqlx.DB
}

func NewExpenseReader(db *sqlx.DB) *ExpenseReader {
	return &ExpenseReader{db: db}
}

func (r *ExpenseReader) ListByOwner(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error) {
	q := sq.Select(expenseColumns...).
		From("expenses").
		Where(sq.Eq{"owner_id": ownerID, "company_id": companyID}).
		OrderBy("expense_date DESC")
	return r.list(ctx, q, "dashboard owner query")
}

func (r *ExpenseReader) ListSince(ctx context.Context, since time.Time, f dashboard.Filter) ([]*expense.Expense, error) {
	q := sq.Select(expenseColumns...).
		From("expenses").
		Where(sq.GtOrEq{"expense_date": since}).
		OrderBy("expense_date DESC")
	if f.CompanyID != "" {
		q = q.Where(sq.Eq{"company_id": f.CompanyID})
	}
	if f.CostCenter != "" {
		q = q.Where(sq.Eq{"cost_center": f.CostCenter})
	}
	return r.list(ctx, q, "dashboard admin query")
}

// list renders q with "?" placeholders and lets sqlx rebind them for the driver in use.
func (r *ExpenseReader) list(ctx context.Context, q sq.SelectBuilder, name string) ([]*expense.Expense, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build: %w", name, err)
	}

	var rows []expenseRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out := make([]*expense.Expense, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
