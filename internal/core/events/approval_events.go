package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseSubmitted  = "expense.submitted"
	EventTypeExpenseApproved   = "expense.approved"
	EventTypeExpenseRejected   = "expense.rejected"
	EventTypeApprovalRequested = "approval.requested"
)

// ApprovalRequestedEvent fires whenever a new approval task becomes pending,
// both at submission time and when a sequential workflow unlocks a step.
type ApprovalRequestedEvent struct {
	BaseEvent
	ApprovalID     int64  `json:"approval_id"`
	ExpenseID      int64  `json:"expense_id"`
	ApproverUserID int64  `json:"approver_user_id"`
	Category       string `json:"category"`
}

func NewApprovalRequestedEvent(approvalID, expenseID, approverUserID int64, category string) *ApprovalRequestedEvent {
	return &ApprovalRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeApprovalRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"approval_id":      approvalID,
				"expense_id":       expenseID,
				"approver_user_id": approverUserID,
				"category":         category,
			},
		},
		ApprovalID:     approvalID,
		ExpenseID:      expenseID,
		ApproverUserID: approverUserID,
		Category:       category,
	}
}

type ExpenseSubmittedEvent struct {
	BaseEvent
	ExpenseID int64  `json:"expense_id"`
	OwnerID   int64  `json:"owner_id"`
	Category  string `json:"category"`
	TaskCount int    `json:"task_count"`
}

func NewExpenseSubmittedEvent(expenseID, ownerID int64, category string, taskCount int) *ExpenseSubmittedEvent {
	return &ExpenseSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"owner_id":   ownerID,
				"category":   category,
				"task_count": taskCount,
			},
		},
		ExpenseID: expenseID,
		OwnerID:   ownerID,
		Category:  category,
		TaskCount: taskCount,
	}
}

// ExpenseDecidedEvent covers both terminal outcomes; Type distinguishes them.
type ExpenseDecidedEvent struct {
	BaseEvent
	ExpenseID int64  `json:"expense_id"`
	OwnerID   int64  `json:"owner_id"`
	Status    string `json:"status"`
	DeciderID int64  `json:"decider_id"`
}

func NewExpenseDecidedEvent(eventType string, expenseID, ownerID, deciderID int64, status string) *ExpenseDecidedEvent {
	return &ExpenseDecidedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"owner_id":   ownerID,
				"status":     status,
				"decider_id": deciderID,
			},
		},
		ExpenseID: expenseID,
		OwnerID:   ownerID,
		Status:    status,
		DeciderID: deciderID,
	}
}
