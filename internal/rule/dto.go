package rule

import (
	"fmt"

	"github.com/shopspring/decimal"

	internal "github.com/hanifm/expense-approval/internal"
)

type StepDTO struct {
	UserID             *int64  `json:"user_id,omitempty"`
	RoleType           *string `json:"role_type,omitempty"`
	IsRequiredApprover bool    `json:"is_required_approver"`
	SequenceOrder      int     `json:"sequence_order"`
}

type CreateRuleDTO struct {
	Name                  string          `json:"name"`
	AppliesToCategory     *string         `json:"applies_to_category,omitempty"`
	IsManagerFirst        bool            `json:"is_manager_first"`
	IsSequential          bool            `json:"is_sequential"`
	MinApprovalPercentage decimal.Decimal `json:"min_approval_percentage"`
	Steps                 []StepDTO       `json:"steps"`
}

type UpdateRuleDTO struct {
	Name                  *string          `json:"name,omitempty"`
	AppliesToCategory     *string          `json:"applies_to_category,omitempty"`
	ClearCategory         bool             `json:"clear_category,omitempty"`
	IsManagerFirst        *bool            `json:"is_manager_first,omitempty"`
	IsSequential          *bool            `json:"is_sequential,omitempty"`
	MinApprovalPercentage *decimal.Decimal `json:"min_approval_percentage,omitempty"`
	Steps                 []StepDTO        `json:"steps,omitempty"`
}

func validateStep(i int, s StepDTO) error {
	hasUser := s.UserID != nil && *s.UserID > 0
	hasRole := s.RoleType != nil && *s.RoleType != ""
	if hasUser == hasRole {
		return internal.NewValidationError(
			fmt.Sprintf("step %d must set exactly one of user_id or role_type", i+1), internal.ErrCodeValidationFailed)
	}
	if s.SequenceOrder < 1 {
		return internal.NewValidationError(
			fmt.Sprintf("step %d sequence_order must be at least 1", i+1), internal.ErrCodeValidationFailed)
	}
	return nil
}

func validatePercentage(pct decimal.Decimal) error {
	if pct.LessThanOrEqual(decimal.Zero) || pct.GreaterThan(decimal.NewFromInt(100)) {
		return internal.NewValidationError("min_approval_percentage must be greater than 0 and at most 100", internal.ErrCodeValidationFailed)
	}
	return nil
}

func (d *CreateRuleDTO) Validate() error {
	if d.Name == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if len(d.Steps) == 0 {
		return internal.NewValidationError("at least one step is required", internal.ErrCodeValidationFailed)
	}
	if err := validatePercentage(d.MinApprovalPercentage); err != nil {
		return err
	}
	for i, s := range d.Steps {
		if err := validateStep(i, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *UpdateRuleDTO) Validate() error {
	if d.Name != nil && *d.Name == "" {
		return internal.NewValidationError("name cannot be empty", internal.ErrCodeValidationFailed)
	}
	if d.MinApprovalPercentage != nil {
		if err := validatePercentage(*d.MinApprovalPercentage); err != nil {
			return err
		}
	}
	for i, s := range d.Steps {
		if err := validateStep(i, s); err != nil {
			return err
		}
	}
	return nil
}
