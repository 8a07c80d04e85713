package store

import (
	"context"
	"errors"
	"testing"

	kverrors "github.com/dukerupert/kinvault/internal/errors"
	"github.com/dukerupert/kinvault/internal/kind"
	"github.com/dukerupert/kinvault/internal/model"
)

func TestFamilyMemberCRUD(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	uid := mustUser(t, s, "alice")

	m, err := s.members.Create(ctx, uid, model.FamilyMemberInput{Name: "Priya", Relationship: "Sister"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Name != "Priya" || m.Relationship != "Sister" {
		t.Errorf("got %+v", m)
	}
	if m.UserID != uid {
		t.Errorf("user_id = %d, want %d", m.UserID, uid)
	}

	got, err := s.members.Get(ctx, uid, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Priya" {
		t.Errorf("name = %q, want %q", got.Name, "Priya")
	}

	updated, err := s.members.Update(ctx, uid, m.ID, model.FamilyMemberInput{DOB: "1990-04-01"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Priya" {
		t.Errorf("name = %q, want unchanged %q", updated.Name, "Priya")
	}
	if updated.Relationship != "Sister" {
		t.Errorf("relationship = %q, want unchanged", updated.Relationship)
	}
	if updated.DOB != "1990-04-01" {
		t.Errorf("dob = %q, want %q", updated.DOB, "1990-04-01")
	}

	if err := s.members.Delete(ctx, uid, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.members.Get(ctx, uid, m.ID); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestFamilyMemberNameRequired(t *testing.T) {
	s := setupTestDB(t)
	uid := mustUser(t, s, "alice")

	_, err := s.members.Create(context.Background(), uid, model.FamilyMemberInput{Name: "  ", Relationship: "Self"})
	if !errors.Is(err, kverrors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestFamilyMemberListScopedToOwner(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	s.members.Create(ctx, alice, model.FamilyMemberInput{Name: "Asha"})
	s.members.Create(ctx, alice, model.FamilyMemberInput{Name: "Ravi"})
	s.members.Create(ctx, bob, model.FamilyMemberInput{Name: "Meera"})

	members, err := s.members.List(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Name != "Asha" || members[1].Name != "Ravi" {
		t.Errorf("order = %q, %q; want creation order", members[0].Name, members[1].Name)
	}
}

func TestFamilyMemberForeignOwnerNotFound(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	m, _ := s.members.Create(ctx, alice, model.FamilyMemberInput{Name: "Asha"})

	if _, err := s.members.Get(ctx, bob, m.ID); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("get err = %v, want ErrNotFound", err)
	}
	if _, err := s.members.Update(ctx, bob, m.ID, model.FamilyMemberInput{Name: "Hijacked"}); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("update err = %v, want ErrNotFound", err)
	}
	if err := s.members.Delete(ctx, bob, m.ID); !errors.Is(err, kverrors.ErrNotFound) {
		t.Errorf("delete err = %v, want ErrNotFound", err)
	}

	still, err := s.members.Get(ctx, alice, m.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if still.Name != "Asha" {
		t.Errorf("name = %q, want %q", still.Name, "Asha")
	}
}

func TestFamilyMemberDeleteCascades(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	uid := mustUser(t, s, "alice")

	m, _ := s.members.Create(ctx, uid, model.FamilyMemberInput{Name: "Asha"})
	doc, err := s.records.Create(ctx, uid, m.ID, kind.Documents, model.Fields{"type": "Passport", "number": "P1"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if _, err := s.records.Create(ctx, uid, m.ID, kind.Lockers, model.Fields{"bank_name": "SBI"}); err != nil {
		t.Fatalf("create locker: %v", err)
	}

	if err := s.members.Delete(ctx, uid, m.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents WHERE id = ?`, doc.ID).Scan(&count); err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if count != 0 {
		t.Errorf("documents remaining = %d, want 0", count)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM lockers`).Scan(&count); err != nil {
		t.Fatalf("count lockers: %v", err)
	}
	if count != 0 {
		t.Errorf("lockers remaining = %d, want 0", count)
	}
}
