package cmd

import (
	"fmt"

	"github.com/frahmantamala/expense-reimbursement/internal/auth"
	"github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/company"
	"github.com/frahmantamala/expense-reimbursement/internal/core/datamodel/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, companies and permissions for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		dbConn, gormDB, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		if clearData {
			if err := clearSeedData(gormDB); err != nil {
				return err
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}

		return gormDB.Transaction(func(tx *gorm.DB) error {
			return seed(tx, string(hash))
		})
	},
}

type seedCompany struct {
	ID          string
	Name        string
	CostCenters []string
}

var seedCompanies = []seedCompany{
	{ID: "acme", Name: "Acme Ltda", CostCenters: []string{"Comercial", "Engenharia", "Financeiro"}},
	{ID: "globex", Name: "Globex SA", CostCenters: []string{"Operações", "Diretoria"}},
}

type seedUser struct {
	Email       string
	Name        string
	Department  string
	Permissions []string
	Companies   []string
}

var seedUsers = []seedUser{
	{Email: "fadhil@mail.com", Name: "Fadhil", Department: "Engenharia", Companies: []string{"acme"}},
	{
		Email:       "padil@mail.com",
		Name:        "Padil Admin",
		Department:  "Financeiro",
		Permissions: []string{auth.PermissionAdmin, auth.PermissionAuditReports, auth.PermissionMarkPaid},
		Companies:   []string{"acme", "globex"},
	},
}

var seedPermissions = map[string]string{
	auth.PermissionAdmin:        "Full administrative access",
	auth.PermissionAuditReports: "Approve or reject submitted reports",
	auth.PermissionMarkPaid:     "Mark submitted reports as paid",
}

func seed(tx *gorm.DB, passwordHash string) error {
	for _, c := range seedCompanies {
		row := company.Company{ID: c.ID, Name: c.Name, IsActive: true}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("seed company %s: %w", c.ID, err)
		}
		for _, name := range c.CostCenters {
			cc := company.CostCenter{CompanyID: c.ID, Name: name}
			if err := tx.Where(&cc).FirstOrCreate(&cc).Error; err != nil {
				return fmt.Errorf("seed cost center %s/%s: %w", c.ID, name, err)
			}
		}
	}
	fmt.Printf("Seeded %d companies\n", len(seedCompanies))

	permIDs := make(map[string]int64, len(seedPermissions))
	for name, desc := range seedPermissions {
		p := user.Permission{Name: name}
		if err := tx.Where(user.Permission{Name: name}).Attrs(user.Permission{Description: desc}).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
		permIDs[name] = p.ID
	}

	for _, su := range seedUsers {
		u := user.User{}
		err := tx.Where(user.User{Email: su.Email}).
			Attrs(user.User{Name: su.Name, Department: su.Department, PasswordHash: passwordHash, IsActive: true}).
			FirstOrCreate(&u).Error
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}

		for _, perm := range su.Permissions {
			up := user.UserPermission{UserID: u.ID, PermissionID: permIDs[perm]}
			if err := tx.Where(&up).FirstOrCreate(&up).Error; err != nil {
				return fmt.Errorf("grant %s to %s: %w", perm, su.Email, err)
			}
		}
		for _, companyID := range su.Companies {
			uc := company.UserCompany{UserID: u.ID, CompanyID: companyID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&uc).Error; err != nil {
				return fmt.Errorf("grant %s to %s: %w", companyID, su.Email, err)
			}
		}
		fmt.Println("Seeded user:", su.Email)
	}

	fmt.Println("Seeding completed successfully! Password for every user: password")
	return nil
}

// clearSeedData empties every table in dependency order.
func clearSeedData(db *gorm.DB) error {
	tables := []string{
		"bank_transactions", "expenses", "report_counters",
		"user_companies", "cost_centers", "companies",
		"user_permissions", "permissions", "users",
	}
	for _, t := range tables {
		if err := db.Exec("DELETE FROM " + t).Error; err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}
