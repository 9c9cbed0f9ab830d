package rule_test

import (
	"log/slog"
	"os"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	internal "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/rule"
)

// Mock rule repository for testing
type mockRuleRepository struct {
	rules       map[int64]*rule.ApprovalRule
	nextID      int64
	createError error
	updateError error
}

func newMockRuleRepository() *mockRuleRepository {
	return &mockRuleRepository{
		rules:  make(map[int64]*rule.ApprovalRule),
		nextID: 1,
	}
}

func (m *mockRuleRepository) Create(r *rule.ApprovalRule) error {
	if m.createError != nil {
		return m.createError
	}
	r.ID = m.nextID
	m.nextID++
	for i := range r.Steps {
		r.Steps[i].ID = int64(i + 1)
		r.Steps[i].RuleID = r.ID
	}
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepository) GetByID(id int64) (*rule.ApprovalRule, error) {
	r, ok := m.rules[id]
	if !ok {
		return nil, internal.ErrRuleNotFound
	}
	return r, nil
}

func (m *mockRuleRepository) Update(r *rule.ApprovalRule) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepository) ReplaceSteps(ruleID int64, steps []rule.RuleStep) error {
	r, ok := m.rules[ruleID]
	if !ok {
		return internal.ErrRuleNotFound
	}
	for i := range steps {
		steps[i].ID = int64(100 + i)
		steps[i].RuleID = ruleID
	}
	r.Steps = steps
	return nil
}

func (m *mockRuleRepository) Delete(id int64) error {
	delete(m.rules, id)
	return nil
}

func (m *mockRuleRepository) List() ([]*rule.ApprovalRule, error) {
	var out []*rule.ApprovalRule
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRuleRepository) FindApplicable(category string) ([]*rule.ApprovalRule, error) {
	var out []*rule.ApprovalRule
	for _, r := range m.rules {
		if r.Matches(category) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(s string) *string { return &s }

var _ = Describe("RuleService", func() {
	var (
		svc      *rule.Service
		mockRepo *mockRuleRepository
	)

	validCreate := func() rule.CreateRuleDTO {
		return rule.CreateRuleDTO{
			Name:                  "travel review",
			AppliesToCategory:     strPtr("Travel"),
			MinApprovalPercentage: decimal.NewFromInt(100),
			Steps: []rule.StepDTO{
				{UserID: int64Ptr(5), SequenceOrder: 1, IsRequiredApprover: true},
			},
		}
	}

	BeforeEach(func() {
		mockRepo = newMockRuleRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = rule.NewService(mockRepo, logger)
	})

	Describe("CreateRule", func() {
		It("should persist a valid rule with its steps", func() {
			created, err := svc.CreateRule(validCreate())

			Expect(err).ToNot(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.Steps).To(HaveLen(1))
			Expect(created.Steps[0].RuleID).To(Equal(created.ID))
		})

		It("should reject a rule without steps", func() {
			dto := validCreate()
			dto.Steps = nil

			_, err := svc.CreateRule(dto)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should reject a step naming both a user and a role", func() {
			dto := validCreate()
			dto.Steps[0].RoleType = strPtr("Admin")

			_, err := svc.CreateRule(dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject a step naming neither a user nor a role", func() {
			dto := validCreate()
			dto.Steps[0].UserID = nil

			_, err := svc.CreateRule(dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject a percentage outside (0, 100]", func() {
			dto := validCreate()
			dto.MinApprovalPercentage = decimal.NewFromInt(0)
			_, err := svc.CreateRule(dto)
			Expect(err).To(HaveOccurred())

			dto.MinApprovalPercentage = decimal.NewFromInt(101)
			_, err = svc.CreateRule(dto)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a sequence order below 1", func() {
			dto := validCreate()
			dto.Steps[0].SequenceOrder = 0

			_, err := svc.CreateRule(dto)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateRule", func() {
		var ruleID int64

		BeforeEach(func() {
			created, err := svc.CreateRule(validCreate())
			Expect(err).ToNot(HaveOccurred())
			ruleID = created.ID
		})

		It("should apply partial field updates", func() {
			pct := decimal.NewFromInt(60)
			updated, err := svc.UpdateRule(ruleID, rule.UpdateRuleDTO{
				Name:                  strPtr("travel review v2"),
				MinApprovalPercentage: &pct,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Name).To(Equal("travel review v2"))
			Expect(updated.MinApprovalPercentage.Equal(pct)).To(BeTrue())
			Expect(updated.Steps).To(HaveLen(1))
		})

		It("should replace the step list wholesale when steps are provided", func() {
			updated, err := svc.UpdateRule(ruleID, rule.UpdateRuleDTO{
				Steps: []rule.StepDTO{
					{UserID: int64Ptr(7), SequenceOrder: 1},
					{UserID: int64Ptr(8), SequenceOrder: 2},
				},
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Steps).To(HaveLen(2))
			Expect(*updated.Steps[0].UserID).To(Equal(int64(7)))
		})

		It("should clear the category on request", func() {
			updated, err := svc.UpdateRule(ruleID, rule.UpdateRuleDTO{ClearCategory: true})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.AppliesToCategory).To(BeNil())
		})

		It("should fail for an unknown rule", func() {
			_, err := svc.UpdateRule(999, rule.UpdateRuleDTO{Name: strPtr("x")})

			Expect(err).To(MatchError(internal.ErrRuleNotFound))
		})
	})

	Describe("DeleteRule", func() {
		It("should delete an existing rule", func() {
			created, err := svc.CreateRule(validCreate())
			Expect(err).ToNot(HaveOccurred())

			Expect(svc.DeleteRule(created.ID)).To(Succeed())

			_, err = svc.GetRule(created.ID)
			Expect(err).To(MatchError(internal.ErrRuleNotFound))
		})

		It("should fail for an unknown rule", func() {
			Expect(svc.DeleteRule(999)).To(MatchError(internal.ErrRuleNotFound))
		})
	})

	Describe("RulesFor", func() {
		It("should match rules by category and include global rules", func() {
			_, err := svc.CreateRule(validCreate())
			Expect(err).ToNot(HaveOccurred())

			global := validCreate()
			global.Name = "any category"
			global.AppliesToCategory = nil
			_, err = svc.CreateRule(global)
			Expect(err).ToNot(HaveOccurred())

			travel, err := svc.RulesFor("Travel")
			Expect(err).ToNot(HaveOccurred())
			Expect(travel).To(HaveLen(2))

			meals, err := svc.RulesFor("Meals & Entertainment")
			Expect(err).ToNot(HaveOccurred())
			Expect(meals).To(HaveLen(1))
			Expect(meals[0].Name).To(Equal("any category"))
		})
	})
})

var _ = Describe("SortedSteps", func() {
	It("should order by sequence then by id for ties", func() {
		r := &rule.ApprovalRule{
			Steps: []rule.RuleStep{
				{ID: 3, SequenceOrder: 2},
				{ID: 2, SequenceOrder: 1},
				{ID: 1, SequenceOrder: 1},
			},
		}

		sorted := r.SortedSteps()

		Expect(sorted[0].ID).To(Equal(int64(1)))
		Expect(sorted[1].ID).To(Equal(int64(2)))
		Expect(sorted[2].ID).To(Equal(int64(3)))
	})
})
