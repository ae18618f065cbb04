package postgres

import (
	"context"

	"github.com/frahmantamala/expense-reimbursement/internal/company"
	companyDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/company"
	"gorm.io/gorm"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.RepositoryAPI {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) ListActive(ctx context.Context, userID int64) ([]*company.Company, error) {
	db := r.db.WithContext(ctx)

	q := db.Model(&companyDatamodel.Company{}).Where("companies.is_active = ?", true)
	if userID != 0 {
		q = q.Joins("JOIN user_companies uc ON uc.company_id = companies.id").
			Where("uc.user_id = ?", userID)
	}

	var rows []*companyDatamodel.Company
	if err := q.Order("companies.name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, c := range rows {
		ids[i] = c.ID
	}

	var centers []*companyDatamodel.CostCenter
	if err := db.Where("company_id IN ?", ids).Order("name ASC").Find(&centers).Error; err != nil {
		return nil, err
	}
	byCompany := make(map[string][]string, len(rows))
	for _, cc := range centers {
		byCompany[cc.CompanyID] = append(byCompany[cc.CompanyID], cc.Name)
	}

	out := make([]*company.Company, len(rows))
	for i, c := range rows {
		out[i] = company.FromDataModel(c, byCompany[c.ID])
	}
	return out, nil
}
