package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	internalerrors "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/approval"
	"github.com/hanifm/expense-approval/internal/expense"
)

type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// WithinExpense opens a transaction, locks the expense row FOR UPDATE and
// runs fn against a transaction-scoped repository. Concurrent submissions
// and decisions on the same expense serialize on this lock.
func (r *ApprovalRepository) WithinExpense(expenseID int64, fn func(tx approval.Repository, exp *expense.Expense) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var exp expense.Expense
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&exp, "id = ?", expenseID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internalerrors.ErrExpenseNotFound
			}
			return err
		}
		return fn(&ApprovalRepository{db: tx}, &exp)
	})
}

func (r *ApprovalRepository) GetExpense(expenseID int64) (*expense.Expense, error) {
	var exp expense.Expense
	if err := r.db.First(&exp, "id = ?", expenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ApprovalRepository) SaveExpense(exp *expense.Expense) error {
	return r.db.Save(exp).Error
}

func (r *ApprovalRepository) CreateSteps(steps []*approval.WorkflowStep) error {
	if len(steps) == 0 {
		return nil
	}
	return r.db.Create(steps).Error
}

func (r *ApprovalRepository) ListStepsByExpense(expenseID int64) ([]*approval.WorkflowStep, error) {
	var steps []*approval.WorkflowStep
	err := r.db.Where("expense_id = ?", expenseID).
		Order("sequence_order ASC, id ASC").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *ApprovalRepository) MarkStepsMaterialized(stepIDs []int64) error {
	if len(stepIDs) == 0 {
		return nil
	}
	return r.db.Model(&approval.WorkflowStep{}).
		Where("id IN ?", stepIDs).
		Update("materialized", true).Error
}

func (r *ApprovalRepository) CreateApprovals(approvals []*approval.Approval) error {
	if len(approvals) == 0 {
		return nil
	}
	return r.db.Create(approvals).Error
}

func (r *ApprovalRepository) GetApproval(id int64) (*approval.Approval, error) {
	var a approval.Approval
	if err := r.db.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.ErrApprovalNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ApprovalRepository) UpdateApproval(a *approval.Approval) error {
	return r.db.Model(&approval.Approval{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"status":     a.Status,
			"comments":   a.Comments,
			"decided_at": a.DecidedAt,
		}).Error
}

func (r *ApprovalRepository) ListApprovalsByExpense(expenseID int64) ([]*approval.Approval, error) {
	var approvals []*approval.Approval
	err := r.db.Where("expense_id = ?", expenseID).
		Order("id ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *ApprovalRepository) ListPendingForUser(userID int64) ([]*approval.PendingTask, error) {
	var tasks []*approval.PendingTask
	err := r.db.Table("expense_approvals").
		Select(`expense_approvals.id AS approval_id,
			expenses.id AS expense_id,
			users.id AS owner_id,
			users.name AS owner_name,
			expenses.category,
			expenses.description,
			expenses.amount_spent,
			expenses.currency_spent,
			expenses.final_amount_base_currency AS amount_base,
			expenses.expense_date,
			expense_approvals.created_at`).
		Joins("JOIN expenses ON expenses.id = expense_approvals.expense_id").
		Joins("JOIN users ON users.id = expenses.user_id").
		Where("expense_approvals.approver_user_id = ? AND expense_approvals.status = ?", userID, approval.StatusPending).
		Where("expenses.status = ?", expense.StatusSubmitted).
		Order("expense_approvals.created_at ASC").
		Scan(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
