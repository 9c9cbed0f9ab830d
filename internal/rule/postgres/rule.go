package postgres

import (
	"errors"

	"gorm.io/gorm"

	internalerrors "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/rule"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) FindApplicable(category string) ([]*rule.ApprovalRule, error) {
	var rules []*rule.ApprovalRule
	err := r.db.Preload("Steps").
		Where("applies_to_category IS NULL OR applies_to_category = ?", category).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepository) Create(ar *rule.ApprovalRule) error {
	return r.db.Create(ar).Error
}

func (r *RuleRepository) GetByID(id int64) (*rule.ApprovalRule, error) {
	var ar rule.ApprovalRule
	err := r.db.Preload("Steps").First(&ar, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internalerrors.ErrRuleNotFound
		}
		return nil, err
	}
	return &ar, nil
}

func (r *RuleRepository) Update(ar *rule.ApprovalRule) error {
	return r.db.Omit("Steps").Save(ar).Error
}

func (r *RuleRepository) ReplaceSteps(ruleID int64, steps []rule.RuleStep) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", ruleID).Delete(&rule.RuleStep{}).Error; err != nil {
			return err
		}
		for i := range steps {
			steps[i].ID = 0
			steps[i].RuleID = ruleID
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

func (r *RuleRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).Delete(&rule.RuleStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rule.ApprovalRule{}, "id = ?", id).Error
	})
}

func (r *RuleRepository) List() ([]*rule.ApprovalRule, error) {
	var rules []*rule.ApprovalRule
	if err := r.db.Preload("Steps").Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
