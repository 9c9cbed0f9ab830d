package user_test

import (
	"errors"
	"log/slog"
	"os"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	internal "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/user"
)

// Mock user repository for testing
type mockUserRepository struct {
	users       map[int64]*user.User
	companies   map[int64]*user.Company
	nextID      int64
	updateError error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:     make(map[int64]*user.User),
		companies: make(map[int64]*user.Company),
		nextID:    1,
	}
}

func (m *mockUserRepository) Create(u *user.User) error {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (m *mockUserRepository) GetByEmail(email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepository) Update(u *user.User) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) ListByCompany(companyID int64) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		if u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUserRepository) ListByManager(managerID int64) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		if u.ManagerID != nil && *u.ManagerID == managerID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUserRepository) ListByRole(companyID int64, roles ...string) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		if u.CompanyID != companyID {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				out = append(out, u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockUserRepository) CreateCompany(c *user.Company) error {
	c.ID = m.nextID
	m.nextID++
	m.companies[c.ID] = c
	return nil
}

func (m *mockUserRepository) GetCompany(id int64) (*user.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, errors.New("company not found")
	}
	return c, nil
}

func (m *mockUserRepository) ListCompanies() ([]*user.Company, error) {
	var out []*user.Company
	for _, c := range m.companies {
		out = append(out, c)
	}
	return out, nil
}

// Mock password mailer for testing
type mockPasswordMailer struct {
	sendError error
	sentTo    []string
	lastPass  string
}

func (m *mockPasswordMailer) SendPasswordReset(email, name, newPassword string) error {
	if m.sendError != nil {
		return m.sendError
	}
	m.sentTo = append(m.sentTo, email)
	m.lastPass = newPassword
	return nil
}

var _ = Describe("UserService", func() {
	var (
		svc        *user.Service
		mockRepo   *mockUserRepository
		mockMailer *mockPasswordMailer
	)

	const companyID = int64(1)

	addUser := func(role string, managerID *int64) *user.User {
		u := &user.User{
			Name:      "test user",
			Email:     "",
			CompanyID: companyID,
			Role:      role,
			ManagerID: managerID,
		}
		Expect(mockRepo.Create(u)).To(Succeed())
		return u
	}

	BeforeEach(func() {
		mockRepo = newMockUserRepository()
		mockMailer = &mockPasswordMailer{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = user.NewService(mockRepo, mockMailer, bcrypt.MinCost, logger)
	})

	Describe("CreateUser", func() {
		validCreate := func() user.CreateUserDTO {
			return user.CreateUserDTO{
				Name:     "Jane Doe",
				Email:    "jane@company.com",
				Password: "secret123",
				Role:     user.RoleEmployee,
			}
		}

		It("should hash the password and store the user", func() {
			created, err := svc.CreateUser(companyID, validCreate())

			Expect(err).ToNot(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.PasswordHash).ToNot(Equal("secret123"))
			Expect(bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123"))).To(Succeed())
		})

		It("should refuse a duplicate email", func() {
			_, err := svc.CreateUser(companyID, validCreate())
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.CreateUser(companyID, validCreate())

			Expect(err).To(MatchError(internal.ErrEmailExists))
		})

		It("should refuse a short password", func() {
			dto := validCreate()
			dto.Password = "short"

			_, err := svc.CreateUser(companyID, dto)

			Expect(err).To(HaveOccurred())
		})

		It("should refuse a manager from another company", func() {
			foreign := &user.User{Name: "other", CompanyID: 2, Role: user.RoleManager}
			Expect(mockRepo.Create(foreign)).To(Succeed())

			dto := validCreate()
			dto.ManagerID = &foreign.ID

			_, err := svc.CreateUser(companyID, dto)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateUser manager assignment", func() {
		It("should refuse making a user their own manager", func() {
			u := addUser(user.RoleEmployee, nil)

			_, err := svc.UpdateUser(u.ID, companyID, user.UpdateUserDTO{ManagerID: &u.ID})

			Expect(err).To(MatchError(internal.ErrManagerCycle))
		})

		It("should refuse an assignment that closes a cycle", func() {
			// a manages b manages c; making a report to c closes the loop
			a := addUser(user.RoleManager, nil)
			b := addUser(user.RoleManager, &a.ID)
			c := addUser(user.RoleEmployee, &b.ID)

			_, err := svc.UpdateUser(a.ID, companyID, user.UpdateUserDTO{ManagerID: &c.ID})

			Expect(err).To(MatchError(internal.ErrManagerCycle))
		})

		It("should allow a valid reassignment", func() {
			a := addUser(user.RoleManager, nil)
			b := addUser(user.RoleManager, nil)
			c := addUser(user.RoleEmployee, &a.ID)

			updated, err := svc.UpdateUser(c.ID, companyID, user.UpdateUserDTO{ManagerID: &b.ID})

			Expect(err).ToNot(HaveOccurred())
			Expect(*updated.ManagerID).To(Equal(b.ID))
		})

		It("should clear the manager on request", func() {
			a := addUser(user.RoleManager, nil)
			c := addUser(user.RoleEmployee, &a.ID)

			updated, err := svc.UpdateUser(c.ID, companyID, user.UpdateUserDTO{ClearManager: true})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.ManagerID).To(BeNil())
		})

		It("should hide users from other companies", func() {
			foreign := &user.User{Name: "other", CompanyID: 2, Role: user.RoleEmployee}
			Expect(mockRepo.Create(foreign)).To(Succeed())

			name := "renamed"
			_, err := svc.UpdateUser(foreign.ID, companyID, user.UpdateUserDTO{Name: &name})

			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("ListUsersFor", func() {
		It("should scope the listing by role", func() {
			admin := addUser(user.RoleAdmin, nil)
			manager := addUser(user.RoleManager, nil)
			emp1 := addUser(user.RoleEmployee, &manager.ID)
			emp2 := addUser(user.RoleEmployee, nil)

			all, err := svc.ListUsersFor(admin)
			Expect(err).ToNot(HaveOccurred())
			Expect(all).To(HaveLen(4))

			team, err := svc.ListUsersFor(manager)
			Expect(err).ToNot(HaveOccurred())
			Expect(team).To(HaveLen(2))

			own, err := svc.ListUsersFor(emp1)
			Expect(err).ToNot(HaveOccurred())
			Expect(own).To(ConsistOf(emp1))

			_ = emp2
		})
	})

	Describe("ResetPassword", func() {
		It("should store a new hash and mail the password", func() {
			u := addUser(user.RoleEmployee, nil)
			u.Email = "emp@company.com"
			oldHash := u.PasswordHash

			password, mailed, err := svc.ResetPassword(u.ID, companyID)

			Expect(err).ToNot(HaveOccurred())
			Expect(mailed).To(BeTrue())
			Expect(password).To(HaveLen(12))
			Expect(u.PasswordHash).ToNot(Equal(oldHash))
			Expect(bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))).To(Succeed())
			Expect(mockMailer.sentTo).To(ConsistOf("emp@company.com"))
		})

		It("should still hand back the password when mailing fails", func() {
			u := addUser(user.RoleEmployee, nil)
			mockMailer.sendError = errors.New("smtp down")

			password, mailed, err := svc.ResetPassword(u.ID, companyID)

			Expect(err).ToNot(HaveOccurred())
			Expect(mailed).To(BeFalse())
			Expect(password).ToNot(BeEmpty())
		})

		It("should refuse a user from another company", func() {
			foreign := &user.User{Name: "other", CompanyID: 2}
			Expect(mockRepo.Create(foreign)).To(Succeed())

			_, _, err := svc.ResetPassword(foreign.ID, companyID)

			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("GeneratePassword", func() {
		It("should produce distinct passwords of the requested length", func() {
			first, err := user.GeneratePassword(16)
			Expect(err).ToNot(HaveOccurred())
			Expect(first).To(HaveLen(16))

			second, err := user.GeneratePassword(16)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).ToNot(Equal(first))
		})
	})
})
