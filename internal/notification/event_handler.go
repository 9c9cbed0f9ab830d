package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hanifm/expense-approval/internal/core/events"
	"github.com/hanifm/expense-approval/internal/user"
)

// UserDirectory resolves event participants to email addresses.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
}

// EventHandler turns workflow events into email notifications. Failures are
// logged and swallowed; notification must never affect the workflow.
type EventHandler struct {
	mailer *Mailer
	users  UserDirectory
	logger *slog.Logger
}

func NewEventHandler(mailer *Mailer, users UserDirectory, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mailer: mailer,
		users:  users,
		logger: logger,
	}
}

func (h *EventHandler) HandleApprovalRequested(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ApprovalRequestedEvent)
	if !ok {
		return fmt.Errorf("expected ApprovalRequestedEvent, got %T", event)
	}

	approver, err := h.users.GetByID(e.ApproverUserID)
	if err != nil {
		h.logger.Error("approval notification: approver lookup failed",
			"approver_user_id", e.ApproverUserID, "error", err)
		return nil
	}

	h.mailer.Enqueue(MailJob{
		To:      approver.Email,
		Subject: fmt.Sprintf("Expense #%d awaits your approval", e.ExpenseID),
		Body: fmt.Sprintf("Hi %s,\n\nA %s expense (#%d) is waiting for your approval.\n\nPlease review it in the expense portal.\n",
			approver.Name, e.Category, e.ExpenseID),
	})
	return nil
}

func (h *EventHandler) HandleExpenseDecided(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseDecidedEvent)
	if !ok {
		return fmt.Errorf("expected ExpenseDecidedEvent, got %T", event)
	}

	owner, err := h.users.GetByID(e.OwnerID)
	if err != nil {
		h.logger.Error("decision notification: owner lookup failed",
			"owner_id", e.OwnerID, "error", err)
		return nil
	}

	h.mailer.Enqueue(MailJob{
		To:      owner.Email,
		Subject: fmt.Sprintf("Your expense #%d was %s", e.ExpenseID, strings.ToLower(e.Status)),
		Body: fmt.Sprintf("Hi %s,\n\nYour expense #%d has been %s.\n",
			owner.Name, e.ExpenseID, strings.ToLower(e.Status)),
	})
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeApprovalRequested, h.HandleApprovalRequested)
	eventBus.Subscribe(events.EventTypeExpenseApproved, h.HandleExpenseDecided)
	eventBus.Subscribe(events.EventTypeExpenseRejected, h.HandleExpenseDecided)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{
			events.EventTypeApprovalRequested,
			events.EventTypeExpenseApproved,
			events.EventTypeExpenseRejected,
		})
}
