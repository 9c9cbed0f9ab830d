package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	internal "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/core/events"
	"github.com/hanifm/expense-approval/internal/expense"
	"github.com/hanifm/expense-approval/internal/rule"
	"github.com/hanifm/expense-approval/internal/user"
)

// RuleDirectory supplies the approval rules applicable to a category.
type RuleDirectory interface {
	RulesFor(category string) ([]*rule.ApprovalRule, error)
}

// UserDirectory resolves workflow participants.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
	UsersWithRole(companyID int64, role string) ([]*user.User, error)
}

// Service runs the approval workflow: it instantiates a plan when an expense
// is submitted and evaluates decisions until the expense reaches a terminal
// status. All mutations for one expense happen under its row lock, so
// concurrent decisions are applied one at a time.
type Service struct {
	repo     Repository
	rules    RuleDirectory
	users    UserDirectory
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, rules RuleDirectory, users UserDirectory, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		rules:    rules,
		users:    users,
		eventBus: eventBus,
		logger:   logger,
	}
}

// SubmitExpense moves a draft expense to Submitted and builds its workflow.
// The whole plan is resolved here, against the rules and users as they exist
// right now; later edits to rules or role assignments do not touch this
// expense. Non-sequential rules open every approval task immediately; a
// sequential rule opens its first stage, together with the manager's task
// when the rule puts the manager first.
func (s *Service) SubmitExpense(ctx context.Context, expenseID, actorID int64) (*SubmitResult, error) {
	var (
		result   SubmitResult
		created  []*Approval
		category string
		ownerID  int64
	)

	err := s.repo.WithinExpense(expenseID, func(tx Repository, exp *expense.Expense) error {
		if exp.UserID != actorID {
			return internal.ErrUnauthorizedAccess
		}
		if !exp.IsDraft() {
			return internal.ErrExpenseNotDraft
		}

		owner, err := s.users.GetByID(exp.UserID)
		if err != nil {
			return err
		}

		applicable, err := s.rules.RulesFor(exp.Category)
		if err != nil {
			return err
		}

		var plan []*WorkflowStep
		if len(applicable) == 0 {
			fallback, err := s.buildManagerFallback(exp, owner)
			if err != nil {
				return err
			}
			plan = fallback
		} else {
			for _, r := range applicable {
				branch, err := s.buildRuleBranch(exp, owner, r)
				if err != nil {
					return err
				}
				plan = append(plan, branch...)
			}
		}

		if err := tx.CreateSteps(plan); err != nil {
			return internal.NewInternalError("failed to create workflow steps", err)
		}

		tasks := make([]*Approval, 0, len(plan))
		for _, ws := range plan {
			if !ws.Materialized {
				continue
			}
			tasks = append(tasks, &Approval{
				ExpenseID:      exp.ID,
				StepID:         ws.ID,
				ApproverUserID: ws.ApproverUserID,
				Status:         StatusPending,
			})
		}
		if err := tx.CreateApprovals(tasks); err != nil {
			return internal.NewInternalError("failed to create approval tasks", err)
		}

		if err := exp.Submit(); err != nil {
			return err
		}
		if err := tx.SaveExpense(exp); err != nil {
			return internal.NewInternalError("failed to update expense status", err)
		}

		created = tasks
		category = exp.Category
		ownerID = exp.UserID
		result = SubmitResult{
			ExpenseID:     exp.ID,
			ExpenseStatus: exp.Status,
			StepCount:     len(plan),
			TaskCount:     len(tasks),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense submitted",
		"expense_id", result.ExpenseID,
		"steps", result.StepCount,
		"tasks", result.TaskCount)

	s.eventBus.Publish(ctx, events.NewExpenseSubmittedEvent(result.ExpenseID, ownerID, category, result.TaskCount))
	for _, t := range created {
		s.eventBus.Publish(ctx, events.NewApprovalRequestedEvent(t.ID, t.ExpenseID, t.ApproverUserID, category))
	}

	return &result, nil
}

// Decide records one approver's verdict on a pending task. A rejection
// immediately rejects the whole expense. An approval may finish a sequence
// stage, which unlocks the next stage's tasks, or satisfy the approval
// threshold, which approves the expense.
func (s *Service) Decide(ctx context.Context, approvalID, actorID int64, dto DecisionDTO) (*DecisionResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	head, err := s.repo.GetApproval(approvalID)
	if err != nil {
		return nil, err
	}

	var (
		result    DecisionResult
		unlocked  []*Approval
		category  string
		ownerID   int64
		finalType string
	)

	err = s.repo.WithinExpense(head.ExpenseID, func(tx Repository, exp *expense.Expense) error {
		task, err := tx.GetApproval(approvalID)
		if err != nil {
			return err
		}

		if task.ApproverUserID != actorID {
			return internal.ErrNotTaskApprover
		}
		if exp.IsTerminal() {
			return internal.ErrExpenseFinalized
		}
		if !task.IsPending() {
			return internal.ErrAlreadyDecided
		}

		now := time.Now()
		task.Comments = dto.Comments
		task.DecidedAt = &now
		if dto.Decision == DecisionRejected {
			task.Status = StatusRejected
		} else {
			task.Status = StatusApproved
		}
		if err := tx.UpdateApproval(task); err != nil {
			return internal.NewInternalError("failed to record decision", err)
		}

		if task.Status == StatusRejected {
			if err := exp.Reject(); err != nil {
				return err
			}
			if err := tx.SaveExpense(exp); err != nil {
				return internal.NewInternalError("failed to update expense status", err)
			}
			finalType = events.EventTypeExpenseRejected
		} else {
			next, err := s.advanceWorkflow(tx, exp)
			if err != nil {
				return err
			}
			unlocked = next
			if exp.Status == expense.StatusApproved {
				finalType = events.EventTypeExpenseApproved
			}
		}

		category = exp.Category
		ownerID = exp.UserID
		result = DecisionResult{Approval: task, ExpenseStatus: exp.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("approval decided",
		"approval_id", approvalID,
		"decision", dto.Decision,
		"expense_status", result.ExpenseStatus)

	for _, t := range unlocked {
		s.eventBus.Publish(ctx, events.NewApprovalRequestedEvent(t.ID, t.ExpenseID, t.ApproverUserID, category))
	}
	if finalType != "" {
		s.eventBus.Publish(ctx, events.NewExpenseDecidedEvent(finalType, head.ExpenseID, ownerID, actorID, result.ExpenseStatus))
	}

	return &result, nil
}

// PendingApprovalsFor lists the approver's actionable tasks.
func (s *Service) PendingApprovalsFor(userID int64) ([]*PendingTask, error) {
	tasks, err := s.repo.ListPendingForUser(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list pending approvals", err)
	}
	return tasks, nil
}

// WorkflowFor returns the plan and task state for one expense. Visible to
// the expense owner, admins, and anyone assigned a step in the plan.
func (s *Service) WorkflowFor(expenseID int64, actor *user.User) (*WorkflowView, error) {
	exp, err := s.repo.GetExpense(expenseID)
	if err != nil {
		return nil, err
	}

	steps, err := s.repo.ListStepsByExpense(expenseID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list workflow steps", err)
	}

	allowed := exp.UserID == actor.ID || actor.IsAdmin()
	if !allowed {
		for _, ws := range steps {
			if ws.ApproverUserID == actor.ID {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return nil, internal.ErrUnauthorizedAccess
	}

	approvals, err := s.repo.ListApprovalsByExpense(expenseID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list approvals", err)
	}

	return &WorkflowView{
		ExpenseID:     exp.ID,
		ExpenseStatus: exp.Status,
		Steps:         steps,
		Approvals:     approvals,
	}, nil
}

// buildRuleBranch resolves one rule into concrete workflow steps for the
// expense.
func (s *Service) buildRuleBranch(exp *expense.Expense, owner *user.User, r *rule.ApprovalRule) ([]*WorkflowStep, error) {
	sequential := r.IsSequential

	var branch []*WorkflowStep
	seen := make(map[string]bool)
	add := func(approverID int64, seq int, required bool) {
		key := fmt.Sprintf("%d@%d", approverID, seq)
		if seen[key] {
			return
		}
		seen[key] = true
		ruleID := r.ID
		branch = append(branch, &WorkflowStep{
			ExpenseID:        exp.ID,
			RuleID:           &ruleID,
			ApproverUserID:   approverID,
			SequenceOrder:    seq,
			Required:         required,
			BranchSequential: sequential,
			BranchMinPct:     r.MinApprovalPercentage,
		})
	}

	if r.IsManagerFirst {
		if owner.ManagerID == nil {
			return nil, internal.NewConfigurationError(
				fmt.Sprintf("rule %q requires the owner's manager to approve first, but user %d has no manager", r.Name, owner.ID),
				internal.ErrCodeNoApprovalPath)
		}
		add(*owner.ManagerID, 0, true)
	}

	for _, st := range r.SortedSteps() {
		if st.IsRoleStep() {
			holders, err := s.users.UsersWithRole(owner.CompanyID, *st.RoleType)
			if err != nil {
				return nil, err
			}
			if len(holders) == 0 {
				return nil, internal.ErrEmptyRoleStep.WithDetails(map[string]interface{}{
					"rule": r.Name,
					"role": *st.RoleType,
				})
			}
			for _, h := range holders {
				add(h.ID, st.SequenceOrder, st.IsRequiredApprover)
			}
			continue
		}
		if st.UserID != nil {
			add(*st.UserID, st.SequenceOrder, st.IsRequiredApprover)
		}
	}

	if len(branch) == 0 {
		return nil, internal.NewConfigurationError(
			fmt.Sprintf("rule %q has no resolvable approval steps", r.Name),
			internal.ErrCodeNoApprovalPath)
	}

	// The manager's sequence-0 task is always live at submission. In a
	// sequential rule the lowest rule stage opens alongside it; later
	// stages wait for the current stage to complete.
	firstSeq := -1
	for _, ws := range branch {
		if ws.SequenceOrder == 0 {
			continue
		}
		if firstSeq == -1 || ws.SequenceOrder < firstSeq {
			firstSeq = ws.SequenceOrder
		}
	}
	for _, ws := range branch {
		ws.Materialized = !sequential || ws.SequenceOrder == 0 || ws.SequenceOrder == firstSeq
	}

	return branch, nil
}

// buildManagerFallback covers expenses no rule applies to: the owner's
// manager is the sole approver.
func (s *Service) buildManagerFallback(exp *expense.Expense, owner *user.User) ([]*WorkflowStep, error) {
	if owner.ManagerID == nil {
		return nil, internal.ErrNoApprovalPath
	}
	return []*WorkflowStep{{
		ExpenseID:        exp.ID,
		RuleID:           nil,
		ApproverUserID:   *owner.ManagerID,
		SequenceOrder:    1,
		Required:         true,
		BranchSequential: false,
		BranchMinPct:     decimal.NewFromInt(100),
		Materialized:     true,
	}}, nil
}

// advanceWorkflow re-evaluates every branch after an approval. Completed
// sequence stages unlock the next stage before any threshold check; the
// expense is approved only when every branch has reached its threshold.
func (s *Service) advanceWorkflow(tx Repository, exp *expense.Expense) ([]*Approval, error) {
	steps, err := tx.ListStepsByExpense(exp.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list workflow steps", err)
	}
	approvals, err := tx.ListApprovalsByExpense(exp.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list approvals", err)
	}

	byStep := make(map[int64]*Approval, len(approvals))
	for _, a := range approvals {
		byStep[a.StepID] = a
	}

	branches := make(map[int64][]*WorkflowStep)
	var order []int64
	for _, ws := range steps {
		key := int64(0)
		if ws.RuleID != nil {
			key = *ws.RuleID
		}
		if _, ok := branches[key]; !ok {
			order = append(order, key)
		}
		branches[key] = append(branches[key], ws)
	}

	allApproved := true
	var toMaterialize []*WorkflowStep

	for _, key := range order {
		branch := branches[key]
		outcome, next := evaluateBranch(branch, byStep)
		if next != nil {
			toMaterialize = append(toMaterialize, next...)
		}
		if outcome != StatusApproved {
			allApproved = false
		}
	}

	if len(toMaterialize) > 0 {
		tasks := make([]*Approval, 0, len(toMaterialize))
		ids := make([]int64, 0, len(toMaterialize))
		for _, ws := range toMaterialize {
			ids = append(ids, ws.ID)
			tasks = append(tasks, &Approval{
				ExpenseID:      exp.ID,
				StepID:         ws.ID,
				ApproverUserID: ws.ApproverUserID,
				Status:         StatusPending,
			})
		}
		if err := tx.MarkStepsMaterialized(ids); err != nil {
			return nil, internal.NewInternalError("failed to materialize workflow steps", err)
		}
		if err := tx.CreateApprovals(tasks); err != nil {
			return nil, internal.NewInternalError("failed to create approval tasks", err)
		}
		return tasks, nil
	}

	if allApproved {
		if err := exp.Approve(); err != nil {
			return nil, err
		}
		if err := tx.SaveExpense(exp); err != nil {
			return nil, internal.NewInternalError("failed to update expense status", err)
		}
	}

	return nil, nil
}

// evaluateBranch computes one branch's outcome and, for sequential branches
// whose current stage just completed, the steps of the next stage to unlock.
func evaluateBranch(branch []*WorkflowStep, byStep map[int64]*Approval) (string, []*WorkflowStep) {
	total := len(branch)
	approvedCount := 0
	requiredOK := true
	stageDone := true
	var unmaterialized []*WorkflowStep

	for _, ws := range branch {
		if !ws.Materialized {
			unmaterialized = append(unmaterialized, ws)
			if ws.Required {
				requiredOK = false
			}
			continue
		}
		a := byStep[ws.ID]
		switch {
		case a == nil || a.IsPending():
			stageDone = false
			if ws.Required {
				requiredOK = false
			}
		case a.Status == StatusRejected:
			return StatusRejected, nil
		case a.Status == StatusApproved:
			approvedCount++
		}
	}

	sequential := branch[0].BranchSequential
	minPct := branch[0].BranchMinPct

	if sequential && stageDone && len(unmaterialized) > 0 {
		nextSeq := unmaterialized[0].SequenceOrder
		for _, ws := range unmaterialized {
			if ws.SequenceOrder < nextSeq {
				nextSeq = ws.SequenceOrder
			}
		}
		var next []*WorkflowStep
		for _, ws := range unmaterialized {
			if ws.SequenceOrder == nextSeq {
				next = append(next, ws)
			}
		}
		return StatusPending, next
	}

	pct := decimal.NewFromInt(int64(approvedCount)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total)))
	if pct.GreaterThanOrEqual(minPct) && requiredOK {
		return StatusApproved, nil
	}
	return StatusPending, nil
}
