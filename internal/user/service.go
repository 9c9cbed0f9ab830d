package user

import (
	"crypto/rand"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/hanifm/expense-approval/internal"
)

// PasswordMailer delivers freshly generated passwords. Failures are reported
// to the caller but never roll back the password change itself.
type PasswordMailer interface {
	SendPasswordReset(email, name, newPassword string) error
}

type Service struct {
	repo       Repository
	mailer     PasswordMailer
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, mailer PasswordMailer, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		mailer:     mailer,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUser registers a user inside the creating admin's company.
func (s *Service) CreateUser(companyID int64, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, internal.ErrEmailExists
	}

	if dto.ManagerID != nil {
		manager, err := s.repo.GetByID(*dto.ManagerID)
		if err != nil {
			return nil, internal.ErrUserNotFound
		}
		if manager.CompanyID != companyID {
			return nil, internal.NewValidationError("manager must belong to the same company", internal.ErrCodeValidationFailed)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Name:         dto.Name,
		CompanyID:    companyID,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Role:         dto.Role,
		ManagerID:    dto.ManagerID,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "company_id", companyID)
	return u, nil
}

// UpdateUser applies partial updates; manager reassignment is checked for
// cycles before it is persisted.
func (s *Service) UpdateUser(userID int64, companyID int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	if u.CompanyID != companyID {
		return nil, internal.ErrUserNotFound
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Email != nil && *dto.Email != u.Email {
		if existing, err := s.repo.GetByEmail(*dto.Email); err == nil && existing != nil && existing.ID != userID {
			return nil, internal.ErrEmailExists
		}
		u.Email = *dto.Email
	}
	if dto.Role != nil {
		u.Role = *dto.Role
	}
	if dto.ClearManager {
		u.ManagerID = nil
	} else if dto.ManagerID != nil {
		if err := s.checkManagerAssignment(u, *dto.ManagerID); err != nil {
			return nil, err
		}
		u.ManagerID = dto.ManagerID
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", userID)
		return nil, err
	}

	return u, nil
}

// checkManagerAssignment walks the ancestor chain from the proposed manager;
// reaching the user being updated means the assignment would close a cycle.
func (s *Service) checkManagerAssignment(u *User, managerID int64) error {
	if managerID == u.ID {
		return internal.ErrManagerCycle
	}

	manager, err := s.repo.GetByID(managerID)
	if err != nil {
		return internal.ErrUserNotFound
	}
	if manager.CompanyID != u.CompanyID {
		return internal.NewValidationError("manager must belong to the same company", internal.ErrCodeValidationFailed)
	}

	seen := map[int64]bool{u.ID: true}
	current := manager
	for current.ManagerID != nil {
		next := *current.ManagerID
		if seen[next] {
			return internal.ErrManagerCycle
		}
		seen[next] = true

		current, err = s.repo.GetByID(next)
		if err != nil {
			return internal.NewInternalError("broken manager chain", err)
		}
	}
	return nil
}

// ListUsersFor scopes the listing by the caller's role: admins see the whole
// company, managers see themselves plus direct subordinates, employees only
// themselves.
func (s *Service) ListUsersFor(caller *User) ([]*User, error) {
	switch caller.Role {
	case RoleAdmin:
		return s.repo.ListByCompany(caller.CompanyID)
	case RoleManager:
		subordinates, err := s.repo.ListByManager(caller.ID)
		if err != nil {
			return nil, err
		}
		return append(subordinates, caller), nil
	default:
		return []*User{caller}, nil
	}
}

// PotentialManagers returns the users in the company eligible to be assigned
// as someone's manager.
func (s *Service) PotentialManagers(companyID int64) ([]*User, error) {
	return s.repo.ListByRole(companyID, RoleAdmin, RoleManager)
}

// UsersWithRole resolves a role tag to the set of users holding it in the
// company. The approval workflow uses this for role-based rule steps.
func (s *Service) UsersWithRole(companyID int64, role string) ([]*User, error) {
	return s.repo.ListByRole(companyID, role)
}

func (s *Service) GetByID(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// GeneratePassword returns a random password of the given length.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	buf := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ResetPassword generates a new password, stores its hash and mails it to the
// user. When mail delivery fails the new password is returned so the admin can
// hand it over manually.
func (s *Service) ResetPassword(userID int64, companyID int64) (password string, mailed bool, err error) {
	u, err := s.repo.GetByID(userID)
	if err != nil || u.CompanyID != companyID {
		return "", false, internal.ErrUserNotFound
	}

	password, err = GeneratePassword(12)
	if err != nil {
		return "", false, internal.NewInternalError("failed to generate password", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", false, internal.NewInternalError("failed to hash password", err)
	}
	u.PasswordHash = string(hash)

	if err := s.repo.Update(u); err != nil {
		return "", false, err
	}

	if s.mailer == nil {
		return password, false, nil
	}
	if err := s.mailer.SendPasswordReset(u.Email, u.Name, password); err != nil {
		s.logger.Warn("password reset email failed", "error", err, "user_id", userID)
		return password, false, nil
	}

	s.logger.Info("password reset mailed", "user_id", userID)
	return password, true, nil
}

func (s *Service) CreateCompany(dto CreateCompanyDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	c := &Company{
		Name:             dto.Name,
		BaseCurrencyCode: dto.BaseCurrencyCode,
	}
	if err := s.repo.CreateCompany(c); err != nil {
		s.logger.Error("failed to create company", "error", err, "name", dto.Name)
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCompanies() ([]*Company, error) {
	return s.repo.ListCompanies()
}

func (s *Service) GetCompany(id int64) (*Company, error) {
	return s.repo.GetCompany(id)
}
