package auth

import (
	"context"
	"testing"
)

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected no auth context")
	}
	if HouseholdID(context.Background()) != 0 {
		t.Error("expected zero household id")
	}
}

func TestWithAuthRoundTrip(t *testing.T) {
	ac := AuthContext{
		UserID:      7,
		HouseholdID: 3,
		Role:        RoleParent,
		ProfileID:   11,
		ProfileKind: "parent",
		SessionID:   99,
	}
	ctx := WithAuth(context.Background(), ac)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context")
	}
	if got != ac {
		t.Errorf("got %+v, want %+v", got, ac)
	}
	if ProfileID(ctx) != 11 {
		t.Errorf("ProfileID = %d, want 11", ProfileID(ctx))
	}
}

func TestIsParent(t *testing.T) {
	cases := []struct {
		name string
		ac   AuthContext
		want bool
	}{
		{"parent role, parent profile", AuthContext{Role: RoleParent, ProfileKind: "parent"}, true},
		{"parent role, no profile", AuthContext{Role: RoleParent}, true},
		{"parent role, child profile", AuthContext{Role: RoleParent, ProfileKind: "child"}, false},
		{"member role", AuthContext{Role: RoleMember, ProfileKind: "parent"}, false},
	}
	for _, tc := range cases {
		ctx := WithAuth(context.Background(), tc.ac)
		if got := IsParent(ctx); got != tc.want {
			t.Errorf("%s: IsParent = %v, want %v", tc.name, got, tc.want)
		}
	}
}
