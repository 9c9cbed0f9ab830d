package expense

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/user"
)

// RateProvider looks up an exchange rate between two currency codes. A failed
// lookup is recovered with rate 1.0; the caller never sees the error.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// UserProvider is the slice of the user domain the expense service needs.
type UserProvider interface {
	GetByID(id int64) (*user.User, error)
	GetCompany(id int64) (*user.Company, error)
	ListUsersFor(caller *user.User) ([]*user.User, error)
}

// Service handles draft expense lifecycle and reporting. Submission and
// approval decisions are the approval service's job.
type Service struct {
	repo   Repository
	users  UserProvider
	rates  RateProvider
	logger *slog.Logger
}

func NewService(repo Repository, users UserProvider, rates RateProvider, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		rates:  rates,
		logger: logger,
	}
}

// convertToBase converts an amount into the company base currency. Rate
// lookups are best effort: on failure the spent amount is kept 1:1.
func (s *Service) convertToBase(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}

	rate, err := s.rates.Rate(ctx, from, to)
	if err != nil {
		s.logger.Warn("rate lookup failed, falling back to 1.0",
			"error", err, "from", from, "to", to)
		rate = decimal.NewFromInt(1)
	}
	return amount.Mul(rate).Round(2)
}

// CreateExpense creates a draft expense owned by userID.
func (s *Service) CreateExpense(ctx context.Context, userID int64, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	company, err := s.users.GetCompany(owner.CompanyID)
	if err != nil {
		return nil, internal.NewInternalError("owner has no company", err)
	}

	e := &Expense{
		UserID:        userID,
		Category:      dto.Category,
		Description:   dto.Description,
		ExpenseDate:   dto.Date,
		AmountSpent:   dto.AmountSpent,
		CurrencySpent: dto.CurrencySpent,
		AmountBase:    s.convertToBase(ctx, dto.AmountSpent, dto.CurrencySpent, company.BaseCurrencyCode),
		Status:        StatusDraft,
	}

	if err := s.repo.Create(e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", userID,
		"category", e.Category,
		"amount_base", e.AmountBase)

	return e, nil
}

// UpdateExpense edits a draft. Only the owner may edit, and only while Draft.
func (s *Service) UpdateExpense(ctx context.Context, expenseID, actorID int64, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(expenseID)
	if err != nil {
		return nil, internal.ErrExpenseNotFound
	}
	if e.UserID != actorID {
		return nil, internal.ErrUnauthorizedAccess
	}
	if !e.IsDraft() {
		return nil, internal.ErrCannotModifyExpense
	}

	if dto.Category != nil {
		e.Category = *dto.Category
	}
	if dto.Description != nil {
		e.Description = *dto.Description
	}
	if dto.Date != nil {
		e.ExpenseDate = *dto.Date
	}

	amountChanged := dto.AmountSpent != nil || dto.CurrencySpent != nil
	if dto.AmountSpent != nil {
		e.AmountSpent = *dto.AmountSpent
	}
	if dto.CurrencySpent != nil {
		e.CurrencySpent = *dto.CurrencySpent
	}
	if amountChanged {
		owner, err := s.users.GetByID(e.UserID)
		if err != nil {
			return nil, internal.ErrUserNotFound
		}
		company, err := s.users.GetCompany(owner.CompanyID)
		if err != nil {
			return nil, internal.NewInternalError("owner has no company", err)
		}
		e.AmountBase = s.convertToBase(ctx, e.AmountSpent, e.CurrencySpent, company.BaseCurrencyCode)
	}

	if err := s.repo.Update(e); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", expenseID)
		return nil, err
	}

	return e, nil
}

// DeleteExpense removes a draft. Submitted expenses are immutable history.
func (s *Service) DeleteExpense(expenseID, actorID int64) error {
	e, err := s.repo.GetByID(expenseID)
	if err != nil {
		return internal.ErrExpenseNotFound
	}
	if e.UserID != actorID {
		return internal.ErrUnauthorizedAccess
	}
	if !e.IsDraft() {
		return internal.ErrCannotModifyExpense
	}
	return s.repo.Delete(expenseID)
}

// GetExpense returns an expense with owner/admin access control.
func (s *Service) GetExpense(expenseID int64, actor *user.User) (*Expense, error) {
	e, err := s.repo.GetByID(expenseID)
	if err != nil {
		return nil, internal.ErrExpenseNotFound
	}
	if e.UserID != actor.ID && !actor.IsAdmin() {
		s.logger.Warn("unauthorized expense access",
			"expense_id", expenseID, "actor_id", actor.ID, "owner_id", e.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return e, nil
}

func (s *Service) GetUserExpenses(userID int64, limit, offset int) ([]*Expense, error) {
	return s.repo.GetByUserID(userID, limit, offset)
}

// Report aggregates expenses visible to the caller: employees see their own,
// managers their subordinates and themselves, admins the whole company.
// Amounts are summed in the company base currency.
func (s *Service) Report(caller *user.User, filter ReportFilter) (*Report, error) {
	visible, err := s.users.ListUsersFor(caller)
	if err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(visible))
	for _, u := range visible {
		userIDs = append(userIDs, u.ID)
	}

	if filter.UserID != nil {
		if !caller.IsAdmin() && !caller.IsManager() {
			return nil, internal.ErrUnauthorizedAccess
		}
		// The requested user must already be in the caller's visible set,
		// otherwise a manager could report on someone else's subordinates.
		target := *filter.UserID
		found := false
		for _, id := range userIDs {
			if id == target {
				found = true
				break
			}
		}
		if !found {
			return nil, internal.ErrUnauthorizedAccess
		}
		userIDs = []int64{target}
	}

	expenses, err := s.repo.ListForReport(userIDs, filter)
	if err != nil {
		return nil, err
	}

	company, err := s.users.GetCompany(caller.CompanyID)
	if err != nil {
		return nil, internal.NewInternalError("caller has no company", err)
	}

	report := &Report{
		Expenses:        expenses,
		TotalCount:      len(expenses),
		TotalAmount:     decimal.Zero,
		Currency:        company.BaseCurrencyCode,
		StatusBreakdown: make(map[string]StatusSummary),
	}

	for _, e := range expenses {
		report.TotalAmount = report.TotalAmount.Add(e.AmountBase)

		summary := report.StatusBreakdown[e.Status]
		summary.Count++
		summary.Amount = summary.Amount.Add(e.AmountBase)
		report.StatusBreakdown[e.Status] = summary
	}

	return report, nil
}
