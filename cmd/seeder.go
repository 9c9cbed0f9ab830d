package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a sample company, users and an approval rule for development and testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			for _, table := range []string{"expense_approvals", "workflow_steps", "expenses", "rule_steps", "approval_rules", "users", "companies"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		var companyID int64
		row := db.Raw("SELECT id FROM companies WHERE name = ?", "Sample Corp").Row()
		if err := row.Scan(&companyID); err != nil {
			if err := db.Raw(
				"INSERT INTO companies (name, base_currency_code, created_at) VALUES (?, ?, now()) RETURNING id",
				"Sample Corp", "USD").Row().Scan(&companyID); err != nil {
				log.Fatalf("failed to insert company: %v", err)
			}
			fmt.Println("Seeded company: Sample Corp")
		}

		seedUser := func(name, email, password, role string, managerID *int64) int64 {
			var id int64
			row := db.Raw("SELECT id FROM users WHERE email = ?", email).Row()
			if err := row.Scan(&id); err == nil {
				fmt.Printf("user %s already exists\n", email)
				return id
			}
			hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err := db.Raw(
				"INSERT INTO users (name, company_id, email, password_hash, role, manager_id, created_at) VALUES (?, ?, ?, ?, ?, ?, now()) RETURNING id",
				name, companyID, email, string(hash), role, managerID).Row().Scan(&id); err != nil {
				log.Fatalf("failed to insert user %s: %v", email, err)
			}
			fmt.Printf("Seeded %s user: %s\n", role, email)
			return id
		}

		seedUser("System Administrator", "admin@company.com", "admin123", "Admin", nil)
		managerID := seedUser("John Manager", "manager@company.com", "manager123", "Manager", nil)
		seedUser("Jane Employee", "employee@company.com", "employee123", "Employee", &managerID)

		var ruleID int64
		ruleName := "Standard Travel Expense Approval"
		row = db.Raw("SELECT id FROM approval_rules WHERE name = ?", ruleName).Row()
		if err := row.Scan(&ruleID); err == nil {
			fmt.Println("approval rule already exists")
			return
		}

		if err := db.Raw(
			"INSERT INTO approval_rules (name, applies_to_category, is_manager_first, is_sequential, min_approval_percentage, created_at) VALUES (?, ?, true, true, 100.00, now()) RETURNING id",
			ruleName, "Travel").Row().Scan(&ruleID); err != nil {
			log.Fatalf("failed to insert approval rule: %v", err)
		}

		if err := db.Exec(
			"INSERT INTO rule_steps (rule_id, user_id, role_type, is_required_approver, sequence_order, created_at) VALUES (?, ?, NULL, true, 1, now()), (?, NULL, ?, false, 2, now())",
			ruleID, managerID, ruleID, "Admin").Error; err != nil {
			log.Fatalf("failed to insert rule steps: %v", err)
		}

		fmt.Println("Sample data created successfully!")
	},
}
