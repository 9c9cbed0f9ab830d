package user_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hanifm/expense-approval/internal/user"
)

var _ = Describe("Request context user", func() {
	It("should round-trip the authenticated user through a context", func() {
		u := &user.User{ID: 7, Email: "alice@acme.test", Role: user.RoleManager}
		ctx := user.NewContext(context.Background(), u)

		got, ok := user.FromContext(ctx)
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(u))
	})

	It("should report absence on a bare context", func() {
		got, ok := user.FromContext(context.Background())
		Expect(ok).To(BeFalse())
		Expect(got).To(BeNil())
	})
})
