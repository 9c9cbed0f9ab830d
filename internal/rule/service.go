package rule

import (
	"errors"
	"log/slog"

	internal "github.com/hanifm/expense-approval/internal"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) CreateRule(dto CreateRuleDTO) (*ApprovalRule, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r := &ApprovalRule{
		Name:                  dto.Name,
		AppliesToCategory:     dto.AppliesToCategory,
		IsManagerFirst:        dto.IsManagerFirst,
		IsSequential:          dto.IsSequential,
		MinApprovalPercentage: dto.MinApprovalPercentage,
		Steps:                 stepsFromDTO(dto.Steps),
	}

	if err := s.repo.Create(r); err != nil {
		s.logger.Error("failed to create approval rule", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create approval rule", err)
	}

	s.logger.Info("approval rule created", "rule_id", r.ID, "name", r.Name, "steps", len(r.Steps))
	return r, nil
}

func (s *Service) GetRule(id int64) (*ApprovalRule, error) {
	r, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, internal.ErrRuleNotFound) {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to get approval rule", err)
	}
	return r, nil
}

func (s *Service) ListRules() ([]*ApprovalRule, error) {
	rules, err := s.repo.List()
	if err != nil {
		return nil, internal.NewInternalError("failed to list approval rules", err)
	}
	return rules, nil
}

// UpdateRule applies a partial update. When Steps is non-empty the rule's
// step list is replaced wholesale.
func (s *Service) UpdateRule(id int64, dto UpdateRuleDTO) (*ApprovalRule, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, internal.ErrRuleNotFound) {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to get approval rule", err)
	}

	if dto.Name != nil {
		r.Name = *dto.Name
	}
	if dto.ClearCategory {
		r.AppliesToCategory = nil
	} else if dto.AppliesToCategory != nil {
		r.AppliesToCategory = dto.AppliesToCategory
	}
	if dto.IsManagerFirst != nil {
		r.IsManagerFirst = *dto.IsManagerFirst
	}
	if dto.IsSequential != nil {
		r.IsSequential = *dto.IsSequential
	}
	if dto.MinApprovalPercentage != nil {
		r.MinApprovalPercentage = *dto.MinApprovalPercentage
	}

	if err := s.repo.Update(r); err != nil {
		s.logger.Error("failed to update approval rule", "error", err, "rule_id", id)
		return nil, internal.NewInternalError("failed to update approval rule", err)
	}

	if len(dto.Steps) > 0 {
		if err := s.repo.ReplaceSteps(id, stepsFromDTO(dto.Steps)); err != nil {
			s.logger.Error("failed to replace rule steps", "error", err, "rule_id", id)
			return nil, internal.NewInternalError("failed to replace rule steps", err)
		}
	}

	return s.repo.GetByID(id)
}

func (s *Service) DeleteRule(id int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		if errors.Is(err, internal.ErrRuleNotFound) {
			return err
		}
		return internal.NewInternalError("failed to get approval rule", err)
	}
	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete approval rule", "error", err, "rule_id", id)
		return internal.NewInternalError("failed to delete approval rule", err)
	}
	s.logger.Info("approval rule deleted", "rule_id", id)
	return nil
}

// RulesFor returns the rules that apply to an expense category.
func (s *Service) RulesFor(category string) ([]*ApprovalRule, error) {
	rules, err := s.repo.FindApplicable(category)
	if err != nil {
		return nil, internal.NewInternalError("failed to find applicable rules", err)
	}
	return rules, nil
}

func stepsFromDTO(in []StepDTO) []RuleStep {
	steps := make([]RuleStep, 0, len(in))
	for _, d := range in {
		steps = append(steps, RuleStep{
			UserID:             d.UserID,
			RoleType:           d.RoleType,
			IsRequiredApprover: d.IsRequiredApprover,
			SequenceOrder:      d.SequenceOrder,
		})
	}
	return steps
}
