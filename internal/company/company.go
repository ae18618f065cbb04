// Package company serves the read-only company reference data users pick from.
package company

import (
	companyDatamodel "github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/company"
)

type Company struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CostCenters []string `json:"cost_centers"`
}

func FromDataModel(c *companyDatamodel.Company, costCenters []string) *Company {
	if costCenters == nil {
		costCenters = []string{}
	}
	return &Company{
		ID:          c.ID,
		Name:        c.Name,
		CostCenters: costCenters,
	}
}
