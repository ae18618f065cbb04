package postgres

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-reimbursement/internal/user"
	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID         int64          `db:"id"`
	Email      string         `db:"email"`
	Name       string         `db:"name"`
	Department sql.NullString `db:"department"`
	IsActive   bool           `db:"is_active"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*user.Profile, error) {
	query := r.db.Rebind(`
		SELECT id, email, name, department, is_active, created_at
		FROM users
		WHERE id = ? AND is_active = ?`)

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, userID, true); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getbyid query: %w", err)
	}

	return &user.Profile{
		ID:         row.ID,
		Email:      row.Email,
		Name:       row.Name,
		Department: row.Department.String,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (r *UserRepository) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	query := r.db.Rebind(`
		SELECT p.name
		FROM permissions p
		JOIN user_permissions up ON p.id = up.permission_id
		WHERE up.user_id = ?
		ORDER BY p.name`)

	perms := []string{}
	if err := r.db.SelectContext(ctx, &perms, query, userID); err != nil {
		return nil, fmt.Errorf("getpermissions query: %w", err)
	}
	return perms, nil
}

func (r *UserRepository) GetCompanies(ctx context.Context, userID int64) ([]string, error) {
	query := r.db.Rebind(`
		SELECT uc.company_id
		FROM user_companies uc
		JOIN companies c ON c.id = uc.company_id
		WHERE uc.user_id = ? AND c.is_active = ?
		ORDER BY uc.company_id`)

	companies := []string{}
	if err := r.db.SelectContext(ctx, &companies, query, userID, true); err != nil {
		return nil, fmt.Errorf("getcompanies query: %w", err)
	}
	return companies, nil
}
