package user

import "context"

type contextKey string

const contextUserKey contextKey = "authUser"

// NewContext stores the authenticated user in the request context.
func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextUserKey, u)
}

// FromContext retrieves the authenticated user placed by the auth middleware.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextUserKey).(*User)
	return u, ok
}
