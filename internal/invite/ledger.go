package invite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"societyhub.org/internal/identity"
	"societyhub.org/internal/ids"
	"societyhub.org/internal/obs"
	"societyhub.org/internal/otp"
)

const defaultTTL = 7 * 24 * time.Hour

// Ledger drives the invitation handshake: create, prove the phone with a
// one-time code, complete with a password. Completion lands the invitee as a
// pre-approved account carrying the invited role.
type Ledger struct {
	store Store
	otps  *otp.Ledger
	users identity.Store
	now   func() time.Time
	ttl   time.Duration
}

// Option configures Ledger behavior.
type Option func(*Ledger)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.now = fn
		}
	}
}

// WithTTL overrides the default invitation lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// NewLedger constructs a Ledger over the invitation store, the OTP ledger
// used for phone proof, and the identity store that receives completed
// signups.
func NewLedger(store Store, otps *otp.Ledger, users identity.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		otps:  otps,
		users: users,
		now:   time.Now,
		ttl:   defaultTTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateRequest carries the fields a privileged caller supplies when
// inviting someone. Authorization (who may invite which role) is the
// caller's concern.
type CreateRequest struct {
	SocietyID string
	Phone     string
	Email     string
	FirstName string
	LastName  string
	Role      identity.Role
	InvitedBy string
}

func (r *CreateRequest) validate() error {
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("%w: phone_number", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return fmt.Errorf("%w: first_name", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.SocietyID) == "" {
		return fmt.Errorf("%w: society_id", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.InvitedBy) == "" {
		return fmt.Errorf("%w: invited_by", ErrInvalidRequest)
	}
	if _, err := identity.ParseRole(string(r.Role)); err != nil {
		return err
	}
	return nil
}

// Create opens a PENDING invitation and issues a registration code to the
// invited phone. The phone must not already belong to a user, and at most
// one invitation per (society, phone) may be pending at a time. The issued
// code is returned alongside the invitation; delivery is the caller's
// concern.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*Invitation, *otp.Record, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	phone := strings.TrimSpace(req.Phone)

	if _, err := l.users.FindByPhone(ctx, phone); err == nil {
		return nil, nil, ErrUserExists
	} else if err != identity.ErrNotFound {
		return nil, nil, err
	}

	// A stale pending row past its window must not block a fresh invite;
	// flag it now (expiry is lazy) so only a live one conflicts.
	if existing, err := l.store.FindPending(ctx, req.SocietyID, phone); err == nil {
		if err := l.touch(ctx, existing); err != nil {
			return nil, nil, err
		}
		if existing.Status == StatusPending {
			return nil, nil, ErrDuplicatePending
		}
	} else if err != ErrNotFound {
		return nil, nil, err
	}

	now := l.now().UTC()
	inv := &Invitation{
		ID:        ids.New(),
		SocietyID: req.SocietyID,
		Phone:     phone,
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      req.Role,
		InvitedBy: req.InvitedBy,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	if err := l.store.Create(ctx, inv); err != nil {
		return nil, nil, err
	}

	code, err := l.otps.Issue(ctx, otp.IssueRequest{
		Phone:   phone,
		Purpose: otp.PurposeRegistration,
		Email:   inv.Email,
	})
	if err != nil {
		return nil, nil, err
	}
	obs.ObserveInvitation("created")
	return inv, code, nil
}

// Get returns one invitation, flagging it expired first if its window has
// closed.
func (l *Ledger) Get(ctx context.Context, id string) (*Invitation, error) {
	inv, err := l.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.touch(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// VerifyOTPByPhone resolves the live, still-unverified invitation addressed
// at phone, burns the registration code and marks the phone as proven. The
// invitee holds only their phone and the delivered code, so verification is
// keyed by contact rather than invitation id.
func (l *Ledger) VerifyOTPByPhone(ctx context.Context, phone, code string) (*Invitation, error) {
	inv, err := l.store.FindPendingByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	if err := l.touch(ctx, inv); err != nil {
		return nil, err
	}
	if err := requirePending(inv); err != nil {
		return nil, err
	}
	if _, err := l.otps.Consume(ctx, inv.Phone, code, otp.PurposeRegistration); err != nil {
		return nil, err
	}
	ok, err := l.store.MarkVerified(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPending
	}
	inv.OTPVerified = true
	obs.ObserveInvitation("otp_verified")
	return inv, nil
}

// CompleteRequest carries the invitee's signup details. Name fields are
// optional overrides; when blank the names from the invitation stand.
type CompleteRequest struct {
	Password  string
	FirstName string
	LastName  string
}

// Complete finishes the handshake: the invitation must be pending and its
// phone proven. The invitation moves to ACCEPTED and an active, pre-approved
// account with the invited role is created. The PENDING-to-ACCEPTED
// transition is the exclusion gate, so two racing completions produce one
// account.
func (l *Ledger) Complete(ctx context.Context, id string, req CompleteRequest) (*identity.User, error) {
	inv, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requirePending(inv); err != nil {
		return nil, err
	}
	if !inv.OTPVerified {
		return nil, ErrNotVerified
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	ok, err := l.store.Transition(ctx, id, StatusAccepted, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPending
	}

	u := &identity.User{
		Phone:        inv.Phone,
		Email:        inv.Email,
		FirstName:    firstNonEmpty(strings.TrimSpace(req.FirstName), inv.FirstName),
		LastName:     firstNonEmpty(strings.TrimSpace(req.LastName), inv.LastName),
		PasswordHash: hash,
		Role:         inv.Role,
		SocietyID:    inv.SocietyID,
		Approved:     true,
		ApprovedBy:   inv.InvitedBy,
		ApprovedAt:   &now,
		Active:       true,
	}
	if err := l.users.Create(ctx, u); err != nil {
		return nil, err
	}
	obs.ObserveInvitation("accepted")
	return u, nil
}

// Cancel withdraws a pending invitation. Terminal invitations stay as they
// are.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	return l.close(ctx, id, StatusCancelled, "cancelled")
}

// Reject records the invitee declining a pending invitation.
func (l *Ledger) Reject(ctx context.Context, id string) error {
	return l.close(ctx, id, StatusRejected, "rejected")
}

func (l *Ledger) close(ctx context.Context, id string, to Status, event string) error {
	inv, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := requirePending(inv); err != nil {
		return err
	}
	ok, err := l.store.Transition(ctx, id, to, l.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPending
	}
	obs.ObserveInvitation(event)
	return nil
}

// ListBySociety returns a society's invitations, flagging any whose window
// has closed along the way.
func (l *Ledger) ListBySociety(ctx context.Context, societyID string) ([]*Invitation, error) {
	invs, err := l.store.ListBySociety(ctx, societyID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invs {
		if err := l.touch(ctx, inv); err != nil {
			return nil, err
		}
	}
	return invs, nil
}

// touch applies lazy expiry: a pending row past its window is flagged
// EXPIRED on first contact. There is no background sweeper.
func (l *Ledger) touch(ctx context.Context, inv *Invitation) error {
	if inv.Status != StatusPending || !inv.TimedOut(l.now().UTC()) {
		return nil
	}
	if _, err := l.store.MarkTimedOut(ctx, inv.ID, l.now().UTC()); err != nil {
		return err
	}
	inv.Status = StatusExpired
	obs.ObserveInvitation("expired")
	return nil
}

func requirePending(inv *Invitation) error {
	switch inv.Status {
	case StatusPending:
		return nil
	case StatusExpired:
		return ErrExpired
	default:
		return ErrNotPending
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
