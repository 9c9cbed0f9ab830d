package approval

import (
	internal "github.com/hanifm/expense-approval/internal"
)

type DecisionDTO struct {
	Decision string  `json:"decision"`
	Comments *string `json:"comments,omitempty"`
}

func (d *DecisionDTO) Validate() error {
	if d.Decision != DecisionApproved && d.Decision != DecisionRejected {
		return internal.NewValidationError("decision must be approved or rejected", internal.ErrCodeValidationFailed)
	}
	return nil
}

// DecisionResult reports what a decision did to the task and its expense.
type DecisionResult struct {
	Approval      *Approval `json:"approval"`
	ExpenseStatus string    `json:"expense_status"`
}

// SubmitResult reports the workflow created for a submitted expense.
type SubmitResult struct {
	ExpenseID     int64  `json:"expense_id"`
	ExpenseStatus string `json:"expense_status"`
	StepCount     int    `json:"step_count"`
	TaskCount     int    `json:"task_count"`
}

// WorkflowView shows the full plan and task state for one expense.
type WorkflowView struct {
	ExpenseID     int64           `json:"expense_id"`
	ExpenseStatus string          `json:"expense_status"`
	Steps         []*WorkflowStep `json:"steps"`
	Approvals     []*Approval     `json:"approvals"`
}
