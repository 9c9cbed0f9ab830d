package approval

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanifm/expense-approval/internal/expense"
)

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// WorkflowStep is one planned approval slot for an expense, resolved to a
// concrete approver at submission time. The rule's routing flags are
// snapshotted onto the step so that later rule edits never change an
// in-flight workflow.
//
// Steps belonging to a later stage of a sequential branch start with
// Materialized false and get an Approval task only once the stage before
// them completes.
type WorkflowStep struct {
	ID               int64           `json:"id" gorm:"primaryKey"`
	ExpenseID        int64           `json:"expense_id" gorm:"column:expense_id;not null"`
	RuleID           *int64          `json:"rule_id,omitempty" gorm:"column:rule_id"`
	ApproverUserID   int64           `json:"approver_user_id" gorm:"column:approver_user_id;not null"`
	SequenceOrder    int             `json:"sequence_order" gorm:"column:sequence_order;not null"`
	Required         bool            `json:"required" gorm:"column:required;default:false"`
	BranchSequential bool            `json:"branch_sequential" gorm:"column:branch_sequential;default:false"`
	BranchMinPct     decimal.Decimal `json:"branch_min_pct" gorm:"column:branch_min_pct;type:numeric(5,2);default:100.00"`
	Materialized     bool            `json:"materialized" gorm:"column:materialized;default:false"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (WorkflowStep) TableName() string {
	return "workflow_steps"
}

// Approval is a live task assigned to one approver. Only materialized
// workflow steps have an Approval row, so a pending-approvals query never
// surfaces work an approver cannot act on yet.
type Approval struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	ExpenseID      int64      `json:"expense_id" gorm:"column:expense_id;not null"`
	StepID         int64      `json:"step_id" gorm:"column:step_id;not null"`
	ApproverUserID int64      `json:"approver_user_id" gorm:"column:approver_user_id;not null"`
	Status         string     `json:"status" gorm:"column:status;not null;default:'Pending'"`
	Comments       *string    `json:"comments,omitempty" gorm:"column:comments"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	DecidedAt      *time.Time `json:"decided_at,omitempty" gorm:"column:decided_at"`
}

func (Approval) TableName() string {
	return "expense_approvals"
}

func (a *Approval) IsPending() bool {
	return a.Status == StatusPending
}

// PendingTask is an approver's inbox entry: the task joined with enough of
// the expense to act on it.
type PendingTask struct {
	ApprovalID    int64           `json:"approval_id"`
	ExpenseID     int64           `json:"expense_id"`
	OwnerID       int64           `json:"owner_id"`
	OwnerName     string          `json:"owner_name"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	AmountSpent   decimal.Decimal `json:"amount_spent"`
	CurrencySpent string          `json:"currency_spent"`
	AmountBase    decimal.Decimal `json:"amount_base"`
	ExpenseDate   time.Time       `json:"expense_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Repository defines data access for workflow plans and approval tasks.
// Methods other than WithinExpense and ListPendingForUser are expected to be
// called on the transaction-scoped repository passed to WithinExpense.
type Repository interface {
	// WithinExpense runs fn inside a transaction holding a row lock on the
	// expense, serializing all workflow mutations for that expense.
	WithinExpense(expenseID int64, fn func(tx Repository, exp *expense.Expense) error) error

	GetExpense(expenseID int64) (*expense.Expense, error)
	SaveExpense(exp *expense.Expense) error

	CreateSteps(steps []*WorkflowStep) error
	ListStepsByExpense(expenseID int64) ([]*WorkflowStep, error)
	MarkStepsMaterialized(stepIDs []int64) error

	CreateApprovals(approvals []*Approval) error
	GetApproval(id int64) (*Approval, error)
	ListApprovalsByExpense(expenseID int64) ([]*Approval, error)
	UpdateApproval(a *Approval) error

	ListPendingForUser(userID int64) ([]*PendingTask, error)
}
