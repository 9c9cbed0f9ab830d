package user

import (
	"strings"

	"github.com/hanifm/expense-approval/internal"
)

type CreateUserDTO struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

func (dto *CreateUserDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Email) == "" || !strings.Contains(dto.Email, "@") {
		return internal.NewValidationError("a valid email is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Password) < 8 {
		return internal.NewValidationError("password must be at least 8 characters long", internal.ErrCodeValidationFailed)
	}
	if dto.Role == "" {
		dto.Role = RoleEmployee
	}
	if !ValidRole(dto.Role) {
		return internal.NewValidationError("role must be one of Admin, Manager, Employee", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateUserDTO uses pointers so absent fields are left untouched.
type UpdateUserDTO struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Role      *string `json:"role,omitempty"`
	ManagerID *int64  `json:"manager_id,omitempty"`
	// ClearManager removes the current manager assignment.
	ClearManager bool `json:"clear_manager,omitempty"`
}

func (dto *UpdateUserDTO) Validate() error {
	if dto.Email != nil && !strings.Contains(*dto.Email, "@") {
		return internal.NewValidationError("a valid email is required", internal.ErrCodeValidationFailed)
	}
	if dto.Role != nil && !ValidRole(*dto.Role) {
		return internal.NewValidationError("role must be one of Admin, Manager, Employee", internal.ErrCodeValidationFailed)
	}
	if dto.ManagerID != nil && dto.ClearManager {
		return internal.NewValidationError("manager_id and clear_manager are mutually exclusive", internal.ErrCodeValidationFailed)
	}
	return nil
}

type CreateCompanyDTO struct {
	Name             string `json:"name"`
	BaseCurrencyCode string `json:"base_currency_code"`
}

func (dto *CreateCompanyDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.BaseCurrencyCode) != 3 {
		return internal.NewValidationError("base_currency_code must be an ISO 4217 code", internal.ErrCodeValidationFailed)
	}
	dto.BaseCurrencyCode = strings.ToUpper(dto.BaseCurrencyCode)
	return nil
}

type UserView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ManagerID   *int64 `json:"manager_id,omitempty"`
	ManagerName string `json:"manager_name,omitempty"`
}

func ToView(u *User, managerName string) UserView {
	return UserView{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		ManagerID:   u.ManagerID,
		ManagerName: managerName,
	}
}
