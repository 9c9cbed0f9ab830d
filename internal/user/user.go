package user

import (
	"time"
)

const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// Company owns a set of users and fixes the base currency expenses are
// reported in.
type Company struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"not null"`
	BaseCurrencyCode string    `json:"base_currency_code" gorm:"column:base_currency_code;not null;size:3"`
	CreatedAt        time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Company) TableName() string {
	return "companies"
}

// User belongs to exactly one company. ManagerID is a self reference; the
// manager graph within a company must stay acyclic, enforced by the service
// at write time.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	CompanyID    int64     `json:"company_id" gorm:"column:company_id;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Role         string    `json:"role" gorm:"not null;default:Employee"`
	ManagerID    *int64    `json:"manager_id,omitempty" gorm:"column:manager_id"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// CanManage reports whether the role may be assigned subordinates.
func CanManage(role string) bool {
	return role == RoleAdmin || role == RoleManager
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Repository defines the data access methods for users and companies.
type Repository interface {
	Create(user *User) error
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	Update(user *User) error
	ListByCompany(companyID int64) ([]*User, error)
	ListByManager(managerID int64) ([]*User, error)
	ListByRole(companyID int64, roles ...string) ([]*User, error)

	CreateCompany(company *Company) error
	GetCompany(id int64) (*Company, error)
	ListCompanies() ([]*Company, error)
}
