package rule

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalRule describes who must approve expenses of a category. A nil
// AppliesToCategory means the rule applies to every category.
type ApprovalRule struct {
	ID                    int64           `json:"id" gorm:"primaryKey"`
	Name                  string          `json:"name" gorm:"not null"`
	AppliesToCategory     *string         `json:"applies_to_category,omitempty" gorm:"column:applies_to_category"`
	IsManagerFirst        bool            `json:"is_manager_first" gorm:"column:is_manager_first;default:false"`
	IsSequential          bool            `json:"is_sequential" gorm:"column:is_sequential;default:false"`
	MinApprovalPercentage decimal.Decimal `json:"min_approval_percentage" gorm:"column:min_approval_percentage;type:numeric(5,2);default:100.00"`
	CreatedAt             time.Time       `json:"created_at" gorm:"column:created_at;default:now()"`

	Steps []RuleStep `json:"steps" gorm:"foreignKey:RuleID"`
}

func (ApprovalRule) TableName() string {
	return "approval_rules"
}

// RuleStep is either a specific-approver step (UserID set) or a role-based
// step (RoleType set), resolved to concrete users when a workflow is
// instantiated.
type RuleStep struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	RuleID             int64     `json:"rule_id" gorm:"column:rule_id;not null"`
	UserID             *int64    `json:"user_id,omitempty" gorm:"column:user_id"`
	RoleType           *string   `json:"role_type,omitempty" gorm:"column:role_type"`
	IsRequiredApprover bool      `json:"is_required_approver" gorm:"column:is_required_approver;default:false"`
	SequenceOrder      int       `json:"sequence_order" gorm:"column:sequence_order;not null;default:1"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (RuleStep) TableName() string {
	return "rule_steps"
}

func (s *RuleStep) IsRoleStep() bool {
	return s.RoleType != nil && *s.RoleType != ""
}

// SortedSteps returns the rule's steps ordered by sequence_order, ties broken
// by step id so the ordering is deterministic.
func (r *ApprovalRule) SortedSteps() []RuleStep {
	steps := make([]RuleStep, len(r.Steps))
	copy(steps, r.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].SequenceOrder != steps[j].SequenceOrder {
			return steps[i].SequenceOrder < steps[j].SequenceOrder
		}
		return steps[i].ID < steps[j].ID
	})
	return steps
}

// Matches reports whether the rule applies to the given expense category.
func (r *ApprovalRule) Matches(category string) bool {
	return r.AppliesToCategory == nil || *r.AppliesToCategory == "" || *r.AppliesToCategory == category
}

// Repository defines data access for approval rules.
type Repository interface {
	// FindApplicable returns all rules whose category filter is null or equal
	// to category, ordered by rule id.
	FindApplicable(category string) ([]*ApprovalRule, error)

	Create(rule *ApprovalRule) error
	GetByID(id int64) (*ApprovalRule, error)
	Update(rule *ApprovalRule) error
	ReplaceSteps(ruleID int64, steps []RuleStep) error
	Delete(id int64) error
	List() ([]*ApprovalRule, error)
}
