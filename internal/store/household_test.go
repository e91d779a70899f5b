package store

import (
	"strings"
	"testing"

	"github.com/mhollis/chorequest/internal/auth"
	"github.com/mhollis/chorequest/internal/database"
)

func setupHouseholdTestDB(t *testing.T) (*HouseholdStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHouseholdStore(db), NewUserStore(db)
}

func TestHouseholdCreate(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	hh, err := hs.Create("Smith Family")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if hh.Name != "Smith Family" {
		t.Errorf("name = %q, want %q", hh.Name, "Smith Family")
	}
	if len(hh.JoinCode) != joinCodeLength {
		t.Errorf("join code length = %d, want %d", len(hh.JoinCode), joinCodeLength)
	}
	for _, c := range hh.JoinCode {
		if !strings.ContainsRune(joinCodeAlphabet, c) {
			t.Errorf("join code contains %q, outside the alphabet", c)
		}
	}
}

func TestHouseholdGetByJoinCode(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	hh, _ := hs.Create("Smith Family")

	got, err := hs.GetByJoinCode(hh.JoinCode)
	if err != nil {
		t.Fatalf("get by join code: %v", err)
	}
	if got == nil || got.ID != hh.ID {
		t.Fatalf("got = %+v, want household %d", got, hh.ID)
	}

	missing, err := hs.GetByJoinCode("NOPENOPE")
	if err != nil {
		t.Fatalf("get missing code: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown join code")
	}
}

func TestHouseholdRotateJoinCode(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	hh, _ := hs.Create("Smith Family")
	old := hh.JoinCode

	rotated, err := hs.RotateJoinCode(hh.ID)
	if err != nil {
		t.Fatalf("rotate join code: %v", err)
	}
	if rotated.JoinCode == old {
		t.Error("join code should change on rotation")
	}

	stale, err := hs.GetByJoinCode(old)
	if err != nil {
		t.Fatalf("get stale code: %v", err)
	}
	if stale != nil {
		t.Error("old join code should no longer resolve")
	}
}

func TestHouseholdMembers(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	hh, _ := hs.Create("Smith Family")
	alice, _ := us.Create("alice@example.com", "hash", "Alice")
	bob, _ := us.Create("bob@example.com", "hash", "Bob")

	if _, err := hs.AddMember(hh.ID, alice.ID, auth.RoleParent); err != nil {
		t.Fatalf("add alice: %v", err)
	}
	if _, err := hs.AddMember(hh.ID, bob.ID, auth.RoleMember); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	m, err := hs.GetMember(hh.ID, alice.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m == nil || m.Role != auth.RoleParent {
		t.Fatalf("alice role = %+v, want parent", m)
	}

	members, err := hs.ListMembers(hh.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	promoted, err := hs.UpdateMemberRole(hh.ID, bob.ID, auth.RoleParent)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if promoted.Role != auth.RoleParent {
		t.Errorf("bob role = %q, want parent", promoted.Role)
	}
}

func TestHouseholdGetMemberNotFound(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	hh, _ := hs.Create("Smith Family")
	stranger, _ := us.Create("eve@example.com", "hash", "Eve")

	m, err := hs.GetMember(hh.ID, stranger.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m != nil {
		t.Error("expected nil for non-member")
	}
}

func TestListHouseholdsForUser(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	a, _ := hs.Create("Alpha")
	b, _ := hs.Create("Beta")
	hs.Create("Gamma")

	u, _ := us.Create("multi@example.com", "hash", "Multi")
	hs.AddMember(a.ID, u.ID, auth.RoleParent)
	hs.AddMember(b.ID, u.ID, auth.RoleMember)

	households, err := hs.ListHouseholdsForUser(u.ID)
	if err != nil {
		t.Fatalf("list households: %v", err)
	}
	if len(households) != 2 {
		t.Fatalf("expected 2 households, got %d", len(households))
	}
	if households[0].Name != "Alpha" || households[1].Name != "Beta" {
		t.Errorf("households = %q, %q; want Alpha, Beta", households[0].Name, households[1].Name)
	}
}
