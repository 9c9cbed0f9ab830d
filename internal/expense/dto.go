package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/category"
)

type CreateExpenseDTO struct {
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	AmountSpent   decimal.Decimal `json:"amount_spent"`
	CurrencySpent string          `json:"currency_spent"`
}

func (dto *CreateExpenseDTO) Validate() error {
	if strings.TrimSpace(dto.Category) == "" {
		return internal.NewValidationError("category is required", internal.ErrCodeInvalidCategory)
	}
	if !category.IsValid(dto.Category) {
		return internal.NewValidationError("unknown expense category", internal.ErrCodeInvalidCategory)
	}
	if dto.AmountSpent.LessThanOrEqual(decimal.Zero) {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if len(dto.CurrencySpent) != 3 {
		return internal.NewValidationError("currency_spent must be an ISO 4217 code", internal.ErrCodeValidationFailed)
	}
	if dto.Date.IsZero() {
		return internal.NewValidationError("date is required", internal.ErrCodeInvalidDate)
	}
	if dto.Date.After(time.Now()) {
		return internal.NewValidationError("date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	if len(dto.Description) > 500 {
		return internal.NewValidationError("description must be less than 500 characters", internal.ErrCodeValidationFailed)
	}
	dto.CurrencySpent = strings.ToUpper(dto.CurrencySpent)
	return nil
}

// UpdateExpenseDTO applies only the provided fields; valid only while Draft.
type UpdateExpenseDTO struct {
	Category      *string          `json:"category,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Date          *time.Time       `json:"date,omitempty"`
	AmountSpent   *decimal.Decimal `json:"amount_spent,omitempty"`
	CurrencySpent *string          `json:"currency_spent,omitempty"`
}

func (dto *UpdateExpenseDTO) Validate() error {
	if dto.Category != nil && !category.IsValid(*dto.Category) {
		return internal.NewValidationError("unknown expense category", internal.ErrCodeInvalidCategory)
	}
	if dto.AmountSpent != nil && dto.AmountSpent.LessThanOrEqual(decimal.Zero) {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.CurrencySpent != nil && len(*dto.CurrencySpent) != 3 {
		return internal.NewValidationError("currency_spent must be an ISO 4217 code", internal.ErrCodeValidationFailed)
	}
	if dto.Date != nil && dto.Date.After(time.Now()) {
		return internal.NewValidationError("date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

type ReportFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	UserID    *int64
}

type StatusSummary struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Report struct {
	Expenses        []*Expense               `json:"expenses"`
	TotalCount      int                      `json:"total_count"`
	TotalAmount     decimal.Decimal          `json:"total_amount"`
	Currency        string                   `json:"currency"`
	StatusBreakdown map[string]StatusSummary `json:"status_breakdown"`
}
