package postgres

import (
	"context"
	stdErrors "errors"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	txDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/banktransaction"
	expenseDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/expense"
	"github.com/frahmantamala/expense-reimbursement/internal/reconciliation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	linkColumns       = []string{"linked_expense_id", "manual_company_id", "manual_report_id", "manual_description", "updated_at"}
	annotationColumns = []string{"manual_description", "manual_report_id", "updated_at"}
	// reconciliationColumns are the expense columns owned by reconciliation.
	reconciliationColumns = []string{"is_reconciled", "is_paid", "reconciled_transaction_id", "reconciled_date", "updated_at"}
)

const insertBatchSize = 500

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) reconciliation.Repository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) Transaction(ctx context.Context, fn func(tx reconciliation.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BankTransactionRepository{db: tx})
	})
}

func (r *BankTransactionRepository) InsertIgnoringDuplicates(ctx context.Context, txs []*reconciliation.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	rows := make([]*txDatamodel.BankTransaction, len(txs))
	for i, t := range txs {
		rows[i] = reconciliation.ToDataModel(t)
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "fitid"}},
			DoNothing: true,
		}).CreateInBatches(rows, insertBatchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	return int(inserted), err
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, id string) (*reconciliation.Transaction, error) {
	var dm txDatamodel.BankTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dm).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, err
	}
	return reconciliation.FromDataModel(&dm), nil
}

func (r *BankTransactionRepository) GetByIDs(ctx context.Context, ids []string) ([]*reconciliation.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*txDatamodel.BankTransaction
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return reconciliation.FromDataModelSlice(rows), nil
}

func (r *BankTransactionRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*reconciliation.Transaction, error) {
	var rows []*txDatamodel.BankTransaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("posted_at ASC").
		Order("fitid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return reconciliation.FromDataModelSlice(rows), nil
}

func (r *BankTransactionRepository) LinkedTransactions(ctx context.Context, ownerID int64) ([]*reconciliation.Transaction, error) {
	q := r.db.WithContext(ctx).Where("linked_expense_id IS NOT NULL AND linked_expense_id <> ''")
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	var rows []*txDatamodel.BankTransaction
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return reconciliation.FromDataModelSlice(rows), nil
}

func (r *BankTransactionRepository) SaveLink(ctx context.Context, t *reconciliation.Transaction) error {
	return r.saveColumns(ctx, t, linkColumns)
}

func (r *BankTransactionRepository) SaveAnnotations(ctx context.Context, t *reconciliation.Transaction) error {
	return r.saveColumns(ctx, t, annotationColumns)
}

func (r *BankTransactionRepository) saveColumns(ctx context.Context, t *reconciliation.Transaction, cols []string) error {
	dm := reconciliation.ToDataModel(t)
	res := r.db.WithContext(ctx).Model(dm).Select(cols).Updates(dm)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *BankTransactionRepository) DeleteUnlinked(ctx context.Context, ownerID int64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("owner_id = ? AND id IN ?", ownerID, ids).
			Where("linked_expense_id IS NULL OR linked_expense_id = ''").
			Delete(&txDatamodel.BankTransaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return errors.ErrTransactionLinked
		}
		return nil
	})
}

func (r *BankTransactionRepository) GetExpense(ctx context.Context, id string) (*expense.Expense, error) {
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

func (r *BankTransactionRepository) GetExpenses(ctx context.Context, ids []string) ([]*expense.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*expenseDatamodel.Expense
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

func (r *BankTransactionRepository) Candidates(ctx context.Context, ownerID int64, companyID string) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND company_id = ?", ownerID, companyID).
		Where("is_reconciled = ? AND reconciled_transaction_id IS NULL", false).
		Order("expense_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

func (r *BankTransactionRepository) ReconciledExpenses(ctx context.Context, ownerID int64) ([]*expense.Expense, error) {
	q := r.db.WithContext(ctx).Where("is_reconciled = ? OR reconciled_transaction_id IS NOT NULL", true)
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	var rows []*expenseDatamodel.Expense
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

// SaveReconciliation writes only the reconciliation columns of e.
func (r *BankTransactionRepository) SaveReconciliation(ctx context.Context, e *expense.Expense) error {
	dm := expense.ToDataModel(e)
	res := r.db.WithContext(ctx).Model(dm).Select(reconciliationColumns).Updates(dm)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrExpenseNotFound
	}
	return nil
}
