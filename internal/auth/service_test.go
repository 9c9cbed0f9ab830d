package auth_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	internal "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/auth"
	"github.com/hanifm/expense-approval/internal/user"
)

// Mock user repository for testing
type mockAuthRepository struct {
	usersByEmail map[string]*user.User
	usersByID    map[int64]*user.User
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*user.User),
		usersByID:    make(map[int64]*user.User),
	}
}

func (m *mockAuthRepository) addUser(id int64, email, password string) *user.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	Expect(err).ToNot(HaveOccurred())
	u := &user.User{
		ID:           id,
		Name:         "test user",
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleEmployee,
		CompanyID:    1,
	}
	m.usersByEmail[email] = u
	m.usersByID[id] = u
	return u
}

func (m *mockAuthRepository) GetPasswordForEmail(email string) (string, int64, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return "", 0, errors.New("user not found")
	}
	return u.PasswordHash, u.ID, nil
}

func (m *mockAuthRepository) GetUserByID(userID int64) (*user.User, error) {
	u, ok := m.usersByID[userID]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

var _ = Describe("AuthService", func() {
	var (
		svc      *auth.Service
		mockRepo *mockAuthRepository
		tokenGen *auth.JWTTokenGenerator
	)

	BeforeEach(func() {
		mockRepo = newMockAuthRepository()
		mockRepo.addUser(1, "jane@company.com", "secret123")
		tokenGen = auth.NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
		svc = auth.NewService(mockRepo, tokenGen)
	})

	Describe("Authenticate", func() {
		It("should return a token pair and the user view for valid credentials", func() {
			resp, err := svc.Authenticate(auth.LoginDTO{Email: "jane@company.com", Password: "secret123"})

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Tokens.AccessToken).ToNot(BeEmpty())
			Expect(resp.Tokens.RefreshToken).ToNot(BeEmpty())
			Expect(resp.User.ID).To(Equal(int64(1)))
			Expect(resp.User.Email).To(Equal("jane@company.com"))
		})

		It("should refuse a wrong password", func() {
			_, err := svc.Authenticate(auth.LoginDTO{Email: "jane@company.com", Password: "wrong"})

			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("should refuse an unknown email without leaking which part failed", func() {
			_, err := svc.Authenticate(auth.LoginDTO{Email: "nobody@company.com", Password: "secret123"})

			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})
	})

	Describe("token validation", func() {
		It("should round trip claims through an access token", func() {
			resp, err := svc.Authenticate(auth.LoginDTO{Email: "jane@company.com", Password: "secret123"})
			Expect(err).ToNot(HaveOccurred())

			claims, err := svc.ValidateAccessToken(resp.Tokens.AccessToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(claims.UserID).To(Equal("1"))
			Expect(claims.Email).To(Equal("jane@company.com"))
			Expect(claims.Role).To(Equal(user.RoleEmployee))
		})

		It("should refuse a tampered token", func() {
			resp, err := svc.Authenticate(auth.LoginDTO{Email: "jane@company.com", Password: "secret123"})
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.ValidateAccessToken(resp.Tokens.AccessToken + "x")

			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should refuse an expired token", func() {
			shortGen := auth.NewJWTTokenGenerator("access-secret", "refresh-secret", -time.Minute, 7*24*time.Hour)
			token, err := shortGen.GenerateAccessToken("1", "jane@company.com", user.RoleEmployee)
			Expect(err).ToNot(HaveOccurred())

			_, err = tokenGen.ValidateToken(token)

			Expect(err).To(MatchError(internal.ErrTokenExpired))
		})
	})

	Describe("RefreshTokens", func() {
		It("should issue a fresh pair for a valid refresh token", func() {
			resp, err := svc.Authenticate(auth.LoginDTO{Email: "jane@company.com", Password: "secret123"})
			Expect(err).ToNot(HaveOccurred())

			tokens, err := svc.RefreshTokens(resp.Tokens.RefreshToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
			Expect(tokens.RefreshToken).ToNot(BeEmpty())
		})

		It("should refuse a refresh token signed with a different secret", func() {
			gen := auth.NewJWTTokenGenerator("access-secret", "refresh-secret", time.Minute, 7*24*time.Hour)
			token, err := gen.GenerateRefreshToken("1", "jane@company.com", user.RoleEmployee)
			Expect(err).ToNot(HaveOccurred())

			wrongGen := auth.NewJWTTokenGenerator("access-secret", "other-secret", time.Minute, 7*24*time.Hour)
			_, err = wrongGen.ValidateToken(token)

			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("CurrentUser", func() {
		It("should resolve claims back to the domain user", func() {
			resp, err := svc.Authenticate(auth.LoginDTO{Email: "jane@company.com", Password: "secret123"})
			Expect(err).ToNot(HaveOccurred())
			claims, err := svc.ValidateAccessToken(resp.Tokens.AccessToken)
			Expect(err).ToNot(HaveOccurred())

			u, err := svc.CurrentUser(claims)

			Expect(err).ToNot(HaveOccurred())
			Expect(u.ID).To(Equal(int64(1)))
		})
	})
})
