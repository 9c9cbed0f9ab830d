package postgres

import (
	"errors"

	"gorm.io/gorm"

	internalerrors "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/user"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(u *user.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) ListByCompany(companyID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("company_id = ?", companyID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) ListByManager(managerID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("manager_id = ?", managerID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) ListByRole(companyID int64, roles ...string) ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("company_id = ? AND role IN ?", companyID, roles).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) CreateCompany(c *user.Company) error {
	return r.db.Create(c).Error
}

func (r *UserRepository) GetCompany(id int64) (*user.Company, error) {
	var c user.Company
	err := r.db.Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.NewNotFoundError("company not found", internalerrors.ErrCodeValidationFailed)
		}
		return nil, err
	}
	return &c, nil
}

func (r *UserRepository) ListCompanies() ([]*user.Company, error) {
	var companies []*user.Company
	err := r.db.Order("name ASC").Find(&companies).Error
	return companies, err
}
