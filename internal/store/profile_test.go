package store

import (
	"testing"

	"github.com/mhollis/chorequest/internal/database"
	"github.com/mhollis/chorequest/internal/model"
)

func setupProfileTestDB(t *testing.T) (*ProfileStore, *UserStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hh, err := NewHouseholdStore(db).Create("Test Family")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return NewProfileStore(db), NewUserStore(db), hh.ID
}

func TestProfileCRUD(t *testing.T) {
	ps, _, hhID := setupProfileTestDB(t)

	p, err := ps.Create(hhID, nil, "Milo", model.ProfileKindChild, "#FF0000", "🦊")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if p.Name != "Milo" {
		t.Errorf("name = %q, want %q", p.Name, "Milo")
	}
	if p.Kind != model.ProfileKindChild {
		t.Errorf("kind = %q, want child", p.Kind)
	}
	if p.UserID != nil {
		t.Errorf("user_id should be nil, got %v", *p.UserID)
	}
	if p.HasPIN {
		t.Error("new profile should not have a PIN")
	}

	updated, err := ps.Update(p.ID, "Milo R", "#00FF00", "🐻", 3)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Milo R" || updated.Color != "#00FF00" || updated.SortOrder != 3 {
		t.Errorf("updated = %+v", updated)
	}

	profiles, err := ps.List(hhID)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}

	if err := ps.Delete(p.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	got, err := ps.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get deleted profile: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted profile")
	}
}

func TestProfileGetForUser(t *testing.T) {
	ps, us, hhID := setupProfileTestDB(t)

	u, _ := us.Create("alice@example.com", "hash", "Alice")
	linked, err := ps.Create(hhID, &u.ID, "Alice", model.ProfileKindParent, "#0000FF", "A")
	if err != nil {
		t.Fatalf("create linked profile: %v", err)
	}
	ps.Create(hhID, nil, "Kid", model.ProfileKindChild, "#FF0000", "K")

	got, err := ps.GetForUser(hhID, u.ID)
	if err != nil {
		t.Fatalf("get for user: %v", err)
	}
	if got == nil || got.ID != linked.ID {
		t.Fatalf("got = %+v, want profile %d", got, linked.ID)
	}
}

func TestProfileNameExists(t *testing.T) {
	ps, _, hhID := setupProfileTestDB(t)

	p, _ := ps.Create(hhID, nil, "Milo", model.ProfileKindChild, "#FF0000", "M")

	exists, err := ps.NameExists(hhID, "Milo", 0)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !exists {
		t.Error("expected Milo to exist")
	}

	// Excluding the profile itself lets renames keep the same name.
	exists, err = ps.NameExists(hhID, "Milo", p.ID)
	if err != nil {
		t.Fatalf("name exists excluding self: %v", err)
	}
	if exists {
		t.Error("should not count the excluded profile")
	}

	exists, err = ps.NameExists(hhID, "Nobody", 0)
	if err != nil {
		t.Fatalf("name exists missing: %v", err)
	}
	if exists {
		t.Error("expected Nobody to be free")
	}
}

func TestProfilePIN(t *testing.T) {
	ps, _, hhID := setupProfileTestDB(t)

	p, _ := ps.Create(hhID, nil, "Milo", model.ProfileKindChild, "#FF0000", "M")

	if err := ps.SetPIN(p.ID, "bcrypt-hash-here"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	hash, err := ps.GetPINHash(p.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "bcrypt-hash-here" {
		t.Errorf("hash = %q", hash)
	}
	got, _ := ps.GetByID(p.ID)
	if !got.HasPIN {
		t.Error("HasPIN should be true after SetPIN")
	}

	if err := ps.ClearPIN(p.ID); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	got, _ = ps.GetByID(p.ID)
	if got.HasPIN {
		t.Error("HasPIN should be false after ClearPIN")
	}
}

func TestProfileUpdateSortOrder(t *testing.T) {
	ps, _, hhID := setupProfileTestDB(t)

	a, _ := ps.Create(hhID, nil, "A", model.ProfileKindChild, "#FF0000", "A")
	b, _ := ps.Create(hhID, nil, "B", model.ProfileKindChild, "#00FF00", "B")
	c, _ := ps.Create(hhID, nil, "C", model.ProfileKindChild, "#0000FF", "C")

	if err := ps.UpdateSortOrder([]int64{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("update sort order: %v", err)
	}

	profiles, err := ps.List(hhID)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if profiles[0].Name != "C" || profiles[1].Name != "A" || profiles[2].Name != "B" {
		t.Errorf("order = %q, %q, %q; want C, A, B", profiles[0].Name, profiles[1].Name, profiles[2].Name)
	}
}
