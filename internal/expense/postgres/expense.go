package postgres

import (
	"context"
	stdErrors "errors"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	counterDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/counter"
	expenseDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lifecycleColumns are the only columns a report transition may write.
// Reconciliation fields belong to the reconciliation store and are never touched here.
var lifecycleColumns = []string{"status", "report_id", "closing_date", "is_paid", "admin_status", "updated_at"}

var detailColumns = []string{
	"cost_center", "category", "description", "value", "expense_date", "status", "substitute_type",
	"supplier_name", "supplier_document", "document_type", "receipt_type", "receipt_number", "updated_at",
}

var openStatuses = []string{string(expense.StatusActive), string(expense.StatusSubstitute)}

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Transaction(ctx context.Context, fn func(tx expense.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ExpenseRepository{db: tx})
	})
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	return r.db.WithContext(ctx).Create(expense.ToDataModel(e)).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	var dm expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dm).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrExpenseNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&dm), nil
}

func (r *ExpenseRepository) GetByIDs(ctx context.Context, ids []string) ([]*expense.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*expenseDatamodel.Expense
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

// ListByOwner returns the owner's expenses, newest first. An empty companyID spans every company.
func (r *ExpenseRepository) ListByOwner(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	var rows []*expenseDatamodel.Expense
	if err := q.Order("expense_date DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID string) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("expense_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

func (r *ExpenseRepository) ListByReport(ctx context.Context, companyID string, ownerID int64, reportID string) ([]*expense.Expense, error) {
	q := r.db.WithContext(ctx).Where("company_id = ? AND report_id = ?", companyID, reportID)
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	var rows []*expenseDatamodel.Expense
	if err := q.Order("expense_date ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

func (r *ExpenseRepository) ReportIDExists(ctx context.Context, companyID, reportID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("company_id = ? AND report_id = ?", companyID, reportID).
		Count(&count).Error
	return count > 0, err
}

func (r *ExpenseRepository) ReportIDsInUse(ctx context.Context, companyID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Distinct("report_id").
		Where("company_id = ? AND report_id IS NOT NULL", companyID).
		Pluck("report_id", &ids).Error
	return ids, err
}

// ReserveReportSequence must run inside Transaction. On postgres the counter row stays
// locked until commit, so concurrent closes in one company serialize here.
func (r *ExpenseRepository) ReserveReportSequence(ctx context.Context, companyID string, year, floor int) (int, error) {
	db := r.db.WithContext(ctx)

	seed := counterDatamodel.ReportCounter{CompanyID: companyID, Year: year}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	q := db.Where("company_id = ? AND year = ?", companyID, year)
	if db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var current counterDatamodel.ReportCounter
	if err := q.First(&current).Error; err != nil {
		return 0, err
	}

	next := max(current.LastSeq, floor) + 1
	err := db.Model(&counterDatamodel.ReportCounter{}).
		Where("company_id = ? AND year = ?", companyID, year).
		Update("last_seq", next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// UpdateDetails only succeeds while the expense is still open.
func (r *ExpenseRepository) UpdateDetails(ctx context.Context, e *expense.Expense) error {
	dm := expense.ToDataModel(e)
	res := r.db.WithContext(ctx).
		Model(dm).
		Where("status IN ?", openStatuses).
		Select(detailColumns).
		Updates(dm)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrInvalidExpenseStatus
	}
	return nil
}

func (r *ExpenseRepository) UpdateAttachment(ctx context.Context, id string, url *string) error {
	var value interface{} = gorm.Expr("NULL")
	if url != nil {
		value = *url
	}
	res := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ?", id).
		Update("attachment_url", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrExpenseNotFound
	}
	return nil
}

// UpdateLifecycle writes every expense or none.
func (r *ExpenseRepository) UpdateLifecycle(ctx context.Context, expenses []*expense.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range expenses {
			dm := expense.ToDataModel(e)
			res := tx.Model(dm).Select(lifecycleColumns).Updates(dm)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errors.ErrExpenseNotFound
			}
		}
		return nil
	})
}

// DeleteUnreconciled deletes all ids or none. A reconciled row anywhere in the batch aborts it.
func (r *ExpenseRepository) DeleteUnreconciled(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ? AND is_reconciled = ?", ids, false).Delete(&expenseDatamodel.Expense{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return errors.ErrExpenseReconciled
		}
		return nil
	})
}
