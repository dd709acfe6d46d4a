package identity

import (
	"context"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, ok := range []string{"ADMIN", "SUB_ADMIN", "MEMBER", "STAFF"} {
		if _, err := ParseRole(ok); err != nil {
			t.Fatalf("ParseRole(%q): %v", ok, err)
		}
	}
	if _, err := ParseRole("member"); err == nil {
		t.Fatal("lowercase role should be rejected")
	}
	if _, err := ParseRole("ROOT"); err == nil {
		t.Fatal("unknown role should be rejected")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "correct-horse"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-horse"); err == nil {
		t.Fatal("wrong password should fail verification")
	}
	if _, err := HashPassword("short"); err != ErrWeakPassword {
		t.Fatalf("want ErrWeakPassword, got %v", err)
	}
}

func TestInMemoryCreateRejectsDuplicatePhone(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first := &User{Phone: "9001001001", FirstName: "Asha", Role: RoleMember, Active: true}
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &User{Phone: "9001001001", FirstName: "Imposter", Role: RoleMember, Active: true}
	if err := store.Create(ctx, dup); err != ErrDuplicatePhone {
		t.Fatalf("want ErrDuplicatePhone, got %v", err)
	}

	got, err := store.FindByPhone(ctx, "9001001001")
	if err != nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if got.FirstName != "Asha" {
		t.Fatalf("duplicate overwrote original: %+v", got)
	}
}

func TestApproveStampsApprover(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	member := &User{Phone: "9001001001", Role: RoleMember, Active: true}
	if err := store.Create(ctx, member); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Approve(ctx, member.ID, "approver-1", at); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	got, err := store.Find(ctx, member.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !got.Approved || got.ApprovedBy != "approver-1" || got.ApprovedAt == nil || !got.ApprovedAt.Equal(at) {
		t.Fatalf("approval not recorded: %+v", got)
	}

	if err := store.Approve(ctx, "missing", "approver-1", at); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFindApprovedContactPrefersOldest(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	if _, err := store.FindApprovedContact(ctx, RoleSubAdmin, "soc-1"); err != ErrNotFound {
		t.Fatalf("empty store: want ErrNotFound, got %v", err)
	}

	unapproved := &User{Phone: "1", Role: RoleSubAdmin, SocietyID: "soc-1", Active: true}
	if err := store.Create(ctx, unapproved); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.FindApprovedContact(ctx, RoleSubAdmin, "soc-1"); err != ErrNotFound {
		t.Fatalf("unapproved chairman should not be a contact, got %v", err)
	}

	chairman := &User{Phone: "2", FirstName: "Ravi", Role: RoleSubAdmin, SocietyID: "soc-1", Active: true, Approved: true}
	if err := store.Create(ctx, chairman); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.FindApprovedContact(ctx, RoleSubAdmin, "soc-1")
	if err != nil {
		t.Fatalf("FindApprovedContact: %v", err)
	}
	if got.FirstName != "Ravi" {
		t.Fatalf("unexpected contact: %+v", got)
	}

	if _, err := store.FindApprovedContact(ctx, RoleSubAdmin, "soc-2"); err != ErrNotFound {
		t.Fatalf("contact lookup must be scope-bound, got %v", err)
	}
}

func TestListPendingMembers(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	pending := &User{Phone: "1", Role: RoleMember, SocietyID: "soc-1", Active: true}
	approvedMember := &User{Phone: "2", Role: RoleMember, SocietyID: "soc-1", Active: true, Approved: true}
	otherSociety := &User{Phone: "3", Role: RoleMember, SocietyID: "soc-2", Active: true}
	for _, u := range []*User{pending, approvedMember, otherSociety} {
		if err := store.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := store.ListPendingMembers(ctx, "soc-1")
	if err != nil {
		t.Fatalf("ListPendingMembers: %v", err)
	}
	if len(got) != 1 || got[0].Phone != "1" {
		t.Fatalf("unexpected pending list: %+v", got)
	}
}
