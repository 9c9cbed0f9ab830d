package postgres

import (
	"errors"

	"gorm.io/gorm"

	internalerrors "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/expense"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(e *expense.Expense) error {
	return r.db.Create(e).Error
}

func (r *ExpenseRepository) GetByID(id int64) (*expense.Expense, error) {
	var e expense.Expense
	err := r.db.Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepository) GetByUserID(userID int64, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expense.Expense
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) Update(e *expense.Expense) error {
	return r.db.Save(e).Error
}

func (r *ExpenseRepository) Delete(id int64) error {
	return r.db.Delete(&expense.Expense{}, id).Error
}

func (r *ExpenseRepository) ListForReport(userIDs []int64, filter expense.ReportFilter) ([]*expense.Expense, error) {
	q := r.db.Where("user_id IN ?", userIDs)

	if filter.StartDate != nil {
		q = q.Where("expense_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("expense_date <= ?", *filter.EndDate)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var expenses []*expense.Expense
	err := q.Order("expense_date DESC").Find(&expenses).Error
	return expenses, err
}
