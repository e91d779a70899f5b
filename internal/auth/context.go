package auth

import "context"

type contextKey struct{}

// Household member roles.
const (
	RoleParent = "parent"
	RoleMember = "member"
)

// AuthContext carries the authenticated user, household, and the active
// profile driving the request. ProfileID is 0 until a profile is selected.
type AuthContext struct {
	UserID      int64
	HouseholdID int64
	Role        string
	ProfileID   int64
	ProfileKind string
	SessionID   int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func ProfileID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.ProfileID
}

// IsParent reports whether the request may perform parent-only operations.
// A parent-role user acting through a child profile is not privileged: the
// kiosk device is driving as that child.
func IsParent(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == RoleParent && ac.ProfileKind != "child"
}
