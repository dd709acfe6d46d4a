package invite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"societyhub.org/internal/identity"
	"societyhub.org/internal/otp"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ledger *Ledger
	users  *identity.InMemory
	clock  *manualClock
}

func newFixture() *fixture {
	clock := newManualClock()
	users := identity.NewInMemory()
	otps := otp.NewLedger(otp.NewInMemory(), otp.WithClock(clock.Now))
	ledger := NewLedger(NewInMemory(), otps, users, WithClock(clock.Now))
	return &fixture{ledger: ledger, users: users, clock: clock}
}

func staffInvite() CreateRequest {
	return CreateRequest{
		SocietyID: "soc-1",
		Phone:     "9876543210",
		FirstName: "Sunita",
		LastName:  "Patil",
		Role:      identity.RoleStaff,
		InvitedBy: "01CHAIRMAN",
	}
}

func TestInvitationHandshake(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.Status != StatusPending || inv.OTPVerified {
		t.Fatalf("fresh invitation in wrong state: %+v", inv)
	}

	if _, err := f.ledger.VerifyOTPByPhone(ctx, inv.Phone, code.Code); err != nil {
		t.Fatalf("VerifyOTPByPhone: %v", err)
	}

	u, err := f.ledger.Complete(ctx, inv.ID, CompleteRequest{Password: "secret-pass"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if u.Role != identity.RoleStaff || !u.Approved || u.SocietyID != "soc-1" {
		t.Fatalf("completed user in wrong state: %+v", u)
	}
	if u.ApprovedBy != "01CHAIRMAN" {
		t.Fatalf("approver not stamped: %+v", u)
	}
	if err := identity.VerifyPassword(u.PasswordHash, "secret-pass"); err != nil {
		t.Fatalf("password not usable after completion: %v", err)
	}

	got, err := f.ledger.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusAccepted || got.RespondedAt == nil {
		t.Fatalf("invitation not closed out: %+v", got)
	}
}

func TestCompleteRequiresVerifiedPhone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, _, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.ledger.Complete(ctx, inv.ID, CompleteRequest{Password: "secret-pass"}); err != ErrNotVerified {
		t.Fatalf("want ErrNotVerified, got %v", err)
	}
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}
	if _, err := f.ledger.VerifyOTPByPhone(ctx, inv.Phone, wrong); !errors.Is(err, otp.ErrInvalidOrExpired) {
		t.Fatalf("want ErrInvalidOrExpired, got %v", err)
	}
	got, err := f.ledger.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OTPVerified {
		t.Fatal("failed verification must not flag the phone as proven")
	}
}

func TestVerifyOTPByPhoneResolvesLiveInvitation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.ledger.VerifyOTPByPhone(ctx, "9876543210", code.Code)
	if err != nil {
		t.Fatalf("VerifyOTPByPhone: %v", err)
	}
	if got.ID != inv.ID || !got.OTPVerified {
		t.Fatalf("wrong invitation resolved: %+v", got)
	}

	// Once verified, the phone no longer resolves to an invitation.
	if _, err := f.ledger.VerifyOTPByPhone(ctx, "9876543210", code.Code); err != ErrNotFound {
		t.Fatalf("verified invitation should stop resolving by phone, got %v", err)
	}
	if _, err := f.ledger.VerifyOTPByPhone(ctx, "0000000000", code.Code); err != ErrNotFound {
		t.Fatalf("unknown phone: want ErrNotFound, got %v", err)
	}
}

func TestVerifyOTPByPhoneFlagsStaleInvitation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.clock.Advance(7*24*time.Hour + time.Minute)

	if _, err := f.ledger.VerifyOTPByPhone(ctx, "9876543210", code.Code); err != ErrExpired {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	got, err := f.ledger.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusExpired {
		t.Fatalf("stale invitation should be flagged, got %s", got.Status)
	}
}

func TestCreateRejectsExistingUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	existing := &identity.User{Phone: "9876543210", Role: identity.RoleMember, Active: true}
	if err := f.users.Create(ctx, existing); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, _, err := f.ledger.Create(ctx, staffInvite()); err != ErrUserExists {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
}

func TestCreateRejectsDuplicatePendingUntilTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, _, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := f.ledger.Create(ctx, staffInvite()); err != ErrDuplicatePending {
		t.Fatalf("want ErrDuplicatePending, got %v", err)
	}

	if err := f.ledger.Cancel(ctx, inv.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, _, err := f.ledger.Create(ctx, staffInvite()); err != nil {
		t.Fatalf("re-invite after cancellation should succeed, got %v", err)
	}
}

func TestExpiryIsLazyAndTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.clock.Advance(7*24*time.Hour + time.Minute)

	got, err := f.ledger.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusExpired {
		t.Fatalf("stale invitation should read EXPIRED, got %s", got.Status)
	}

	// The flagged row is no longer pending, so it stops resolving by phone.
	if _, err := f.ledger.VerifyOTPByPhone(ctx, inv.Phone, code.Code); err != ErrNotFound {
		t.Fatalf("verify on expired: want ErrNotFound, got %v", err)
	}
	if _, err := f.ledger.Complete(ctx, inv.ID, CompleteRequest{Password: "secret-pass"}); err != ErrExpired {
		t.Fatalf("complete on expired: want ErrExpired, got %v", err)
	}
	if err := f.ledger.Cancel(ctx, inv.ID); err != ErrExpired {
		t.Fatalf("cancel on expired: want ErrExpired, got %v", err)
	}
}

func TestStalePendingInvitationDoesNotBlockReinvite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, _, err := f.ledger.Create(ctx, staffInvite()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.clock.Advance(7*24*time.Hour + time.Minute)

	// The old row was never read, so it still sits PENDING in the store.
	inv, _, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("re-invite past the window should succeed, got %v", err)
	}
	if inv.Status != StatusPending {
		t.Fatalf("fresh invitation in wrong state: %+v", inv)
	}
}

func TestCancelAndRejectOnlyFromPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.ledger.Reject(ctx, inv.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if err := f.ledger.Cancel(ctx, inv.ID); err != ErrNotPending {
		t.Fatalf("cancel after reject: want ErrNotPending, got %v", err)
	}
	if _, err := f.ledger.VerifyOTPByPhone(ctx, inv.Phone, code.Code); err != ErrNotFound {
		t.Fatalf("verify after reject: want ErrNotFound, got %v", err)
	}
}

func TestCompleteWeakPasswordLeavesInvitationPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv, code, err := f.ledger.Create(ctx, staffInvite())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.ledger.VerifyOTPByPhone(ctx, inv.Phone, code.Code); err != nil {
		t.Fatalf("VerifyOTPByPhone: %v", err)
	}
	if _, err := f.ledger.Complete(ctx, inv.ID, CompleteRequest{Password: "short"}); err != identity.ErrWeakPassword {
		t.Fatalf("want ErrWeakPassword, got %v", err)
	}
	got, err := f.ledger.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("failed completion must not close the invitation, got %s", got.Status)
	}
	if _, err := f.ledger.Complete(ctx, inv.ID, CompleteRequest{Password: "secret-pass"}); err != nil {
		t.Fatalf("retry with valid password: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := map[string]func(*CreateRequest){
		"missing phone":      func(r *CreateRequest) { r.Phone = " " },
		"missing first name": func(r *CreateRequest) { r.FirstName = "" },
		"missing society":    func(r *CreateRequest) { r.SocietyID = "" },
		"missing inviter":    func(r *CreateRequest) { r.InvitedBy = "" },
		"bad role":           func(r *CreateRequest) { r.Role = "OWNER" },
	}
	for name, mutate := range cases {
		req := staffInvite()
		mutate(&req)
		if _, _, err := f.ledger.Create(ctx, req); err == nil {
			t.Errorf("%s: want error, got nil", name)
		}
	}
}

func TestListBySocietyFlagsStaleRows(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, _, err := f.ledger.Create(ctx, staffInvite()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.clock.Advance(7*24*time.Hour + time.Minute)

	second := staffInvite()
	second.Phone = "9001001001"
	if _, _, err := f.ledger.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	invs, err := f.ledger.ListBySociety(ctx, "soc-1")
	if err != nil {
		t.Fatalf("ListBySociety: %v", err)
	}
	if len(invs) != 2 {
		t.Fatalf("want 2 invitations, got %d", len(invs))
	}
	byPhone := map[string]Status{}
	for _, inv := range invs {
		byPhone[inv.Phone] = inv.Status
	}
	if byPhone["9876543210"] != StatusExpired || byPhone["9001001001"] != StatusPending {
		t.Fatalf("unexpected statuses: %v", byPhone)
	}
}
