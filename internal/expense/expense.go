package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanifm/expense-approval/internal"
)

const (
	StatusDraft     = "Draft"
	StatusSubmitted = "Submitted"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
)

// Expense is the central entity. Status only ever moves along
// Draft -> Submitted -> {Approved, Rejected}; the amount, category and
// description freeze at submission.
type Expense struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	UserID        int64           `json:"user_id" gorm:"column:user_id;not null"`
	Category      string          `json:"category" gorm:"not null"`
	Description   string          `json:"description"`
	ExpenseDate   time.Time       `json:"date" gorm:"column:expense_date;type:date;not null"`
	AmountSpent   decimal.Decimal `json:"amount_spent" gorm:"column:amount_spent;type:numeric(10,2);not null"`
	CurrencySpent string          `json:"currency_spent" gorm:"column:currency_spent;not null;size:3"`
	AmountBase    decimal.Decimal `json:"final_amount_base_currency" gorm:"column:final_amount_base_currency;type:numeric(10,2)"`
	Status        string          `json:"status" gorm:"not null;default:Draft"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) IsDraft() bool {
	return e.Status == StatusDraft
}

func (e *Expense) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}

// Submit moves the expense out of draft. Submission happens exactly once.
func (e *Expense) Submit() error {
	if e.Status != StatusDraft {
		return internal.ErrExpenseNotDraft
	}
	e.Status = StatusSubmitted
	e.UpdatedAt = time.Now()
	return nil
}

func (e *Expense) Approve() error {
	if e.Status != StatusSubmitted {
		return internal.ErrExpenseFinalized
	}
	e.Status = StatusApproved
	e.UpdatedAt = time.Now()
	return nil
}

func (e *Expense) Reject() error {
	if e.Status != StatusSubmitted {
		return internal.ErrExpenseFinalized
	}
	e.Status = StatusRejected
	e.UpdatedAt = time.Now()
	return nil
}

// Repository defines the data access methods for expenses
type Repository interface {
	Create(expense *Expense) error
	GetByID(id int64) (*Expense, error)
	GetByUserID(userID int64, limit, offset int) ([]*Expense, error)
	Update(expense *Expense) error
	Delete(id int64) error
	ListForReport(userIDs []int64, filter ReportFilter) ([]*Expense, error)
}
