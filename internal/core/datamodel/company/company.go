package company

import "time"

type Company struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Company) TableName() string {
	return "companies"
}

type CostCenter struct {
	ID        int64  `gorm:"primaryKey"`
	CompanyID string `gorm:"column:company_id;not null;index"`
	Name      string `gorm:"column:name;not null"`
}

func (CostCenter) TableName() string {
	return "cost_centers"
}

// UserCompany grants a user access to a company.
type UserCompany struct {
	UserID    int64  `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	CompanyID string `gorm:"column:company_id;primaryKey"`
}

func (UserCompany) TableName() string {
	return "user_companies"
}
