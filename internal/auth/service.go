package auth

import (
	"context"
	"strings"
	"time"

	"societyhub.org/internal/identity"
	"societyhub.org/internal/invite"
	"societyhub.org/internal/obs"
	"societyhub.org/internal/otp"
)

// Service wires the identity store, the OTP ledger and the invitation ledger
// into the authentication flows the HTTP surface exposes. Tokens are
// stateless, so there is no session state here; the stores hold everything
// durable.
type Service struct {
	users    identity.Store
	otps     *otp.Ledger
	invites  *invite.Ledger
	notifier Notifier
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithNotifier overrides code delivery.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(users identity.Store, otps *otp.Ledger, invites *invite.Ledger, opts ...ServiceOption) *Service {
	s := &Service{
		users:    users,
		otps:     otps,
		invites:  invites,
		notifier: LogNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries a self-signup. Self-registered accounts are always
// MEMBER and start unapproved.
type RegisterRequest struct {
	Phone     string
	Email     string
	FirstName string
	LastName  string
	Password  string
	SocietyID string
}

// Register creates an unapproved MEMBER account and issues a registration
// code to the new phone for delivery. The account can hold a session only
// after a SUB_ADMIN or ADMIN approves it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*identity.User, *otp.Record, error) {
	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	u := &identity.User{
		Phone:        strings.TrimSpace(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         identity.RoleMember,
		SocietyID:    strings.TrimSpace(req.SocietyID),
		Active:       true,
	}
	if u.Phone == "" {
		return nil, nil, identity.ErrInvalidPhone
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, nil, err
	}
	rec, err := s.issueAndNotify(ctx, otp.IssueRequest{
		Phone:   u.Phone,
		Purpose: otp.PurposeRegistration,
		UserID:  u.ID,
		Email:   u.Email,
	})
	if err != nil {
		return nil, nil, err
	}
	return u, rec, nil
}

// LoginWithPassword checks the password and, for members, the approval gate.
// Every credential failure reads as ErrUnauthorized.
func (s *Service) LoginWithPassword(ctx context.Context, phone, password string) (*identity.User, TokenPair, error) {
	u, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		obs.ObserveLogin("password", "rejected")
		return nil, TokenPair{}, ErrUnauthorized
	}
	if !u.Active || identity.VerifyPassword(u.PasswordHash, password) != nil {
		obs.ObserveLogin("password", "rejected")
		return nil, TokenPair{}, ErrUnauthorized
	}
	return s.admit(ctx, u, "password")
}

// LoginOTPStart issues a login code to a known phone. Unknown phones are
// rejected so login codes never land on strangers.
func (s *Service) LoginOTPStart(ctx context.Context, phone string) (*otp.Record, error) {
	u, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil || !u.Active {
		obs.ObserveLogin("otp", "rejected")
		return nil, ErrUnauthorized
	}
	return s.issueAndNotify(ctx, otp.IssueRequest{
		Phone:   u.Phone,
		Purpose: otp.PurposeLogin,
		UserID:  u.ID,
		Email:   u.Email,
	})
}

// LoginOTPVerify burns the login code and, for members, checks the approval
// gate.
func (s *Service) LoginOTPVerify(ctx context.Context, phone, code string) (*identity.User, TokenPair, error) {
	if _, err := s.otps.Consume(ctx, phone, code, otp.PurposeLogin); err != nil {
		obs.ObserveLogin("otp", "rejected")
		return nil, TokenPair{}, ErrUnauthorized
	}
	u, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil || !u.Active {
		obs.ObserveLogin("otp", "rejected")
		return nil, TokenPair{}, ErrUnauthorized
	}
	return s.admit(ctx, u, "otp")
}

// admit applies the member approval gate and signs a token pair.
func (s *Service) admit(ctx context.Context, u *identity.User, method string) (*identity.User, TokenPair, error) {
	if u.Role == identity.RoleMember && !u.Approved {
		obs.ObserveLogin(method, "pending_approval")
		pae := &PendingApprovalError{}
		if contact, err := s.users.FindApprovedContact(ctx, identity.RoleSubAdmin, u.SocietyID); err == nil {
			pae.Contact = contact
		}
		return nil, TokenPair{}, pae
	}
	pair, err := GenerateTokenPair(u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	obs.ObserveLogin(method, "ok")
	return u, pair, nil
}

// ForgotPassword issues a reset code to a known phone.
func (s *Service) ForgotPassword(ctx context.Context, phone string) (*otp.Record, error) {
	u, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil || !u.Active {
		return nil, ErrUnauthorized
	}
	return s.issueAndNotify(ctx, otp.IssueRequest{
		Phone:   u.Phone,
		Purpose: otp.PurposeForgotPassword,
		UserID:  u.ID,
		Email:   u.Email,
	})
}

// ResetPassword burns the reset code and replaces the stored hash. Existing
// access and refresh tokens stay valid until they expire; tokens are
// stateless and cannot be revoked.
func (s *Service) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	hash, err := identity.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.otps.Consume(ctx, phone, code, otp.PurposeForgotPassword); err != nil {
		return err
	}
	u, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// SendOTP issues a code for any purpose. Purposes tied to an account (login,
// password reset) require the phone to be registered; registration and
// phone-verification codes may target any phone.
func (s *Service) SendOTP(ctx context.Context, phone string, purpose otp.Purpose) (*otp.Record, error) {
	req := otp.IssueRequest{Phone: strings.TrimSpace(phone), Purpose: purpose}
	switch purpose {
	case otp.PurposeLogin, otp.PurposeForgotPassword:
		u, err := s.users.FindByPhone(ctx, req.Phone)
		if err != nil || !u.Active {
			return nil, ErrUnauthorized
		}
		req.UserID = u.ID
		req.Email = u.Email
	}
	return s.issueAndNotify(ctx, req)
}

// VerifyOTP burns a code without any session side effects.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string, purpose otp.Purpose) (*otp.Record, error) {
	return s.otps.Consume(ctx, phone, code, purpose)
}

// Refresh exchanges a live refresh token for a fresh pair. The user row is
// re-read so deactivated accounts stop refreshing even though tokens are
// stateless.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := ParseToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	u, err := s.users.Find(ctx, claims.Subject)
	if err != nil || !u.Active {
		return TokenPair{}, ErrInvalidToken
	}
	return GenerateTokenPair(u)
}

// CreateUserRequest carries a privileged direct-add.
type CreateUserRequest struct {
	Phone     string
	Email     string
	FirstName string
	LastName  string
	Password  string
	SocietyID string
}

// CreateAdmin creates an ADMIN account. Only a superuser may do this; the
// actor row is re-read so the flag is checked against the store, not the
// token.
func (s *Service) CreateAdmin(ctx context.Context, actorID string, req CreateUserRequest) (*identity.User, error) {
	actor, err := s.users.Find(ctx, actorID)
	if err != nil || !actor.Superuser {
		return nil, ErrForbidden
	}
	return s.createPrivileged(ctx, actorID, identity.RoleAdmin, req)
}

// CreateStaff creates a STAFF account inside a society. ADMIN may target any
// society; SUB_ADMIN only their own.
func (s *Service) CreateStaff(ctx context.Context, p Principal, req CreateUserRequest) (*identity.User, error) {
	switch {
	case p.Is(identity.RoleAdmin):
	case p.Is(identity.RoleSubAdmin):
		if req.SocietyID != p.SocietyID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	if strings.TrimSpace(req.SocietyID) == "" {
		return nil, ErrForbidden
	}
	return s.createPrivileged(ctx, p.UserID, identity.RoleStaff, req)
}

func (s *Service) createPrivileged(ctx context.Context, actorID string, role identity.Role, req CreateUserRequest) (*identity.User, error) {
	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &identity.User{
		Phone:        strings.TrimSpace(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         role,
		SocietyID:    strings.TrimSpace(req.SocietyID),
		Approved:     true,
		ApprovedBy:   actorID,
		ApprovedAt:   &now,
		Active:       true,
	}
	if u.Phone == "" {
		return nil, identity.ErrInvalidPhone
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ApproveMember clears a member's approval gate. SUB_ADMIN is bound to their
// own society; ADMIN may approve anywhere.
func (s *Service) ApproveMember(ctx context.Context, p Principal, memberID string) error {
	if !p.Is(identity.RoleAdmin, identity.RoleSubAdmin) {
		return ErrForbidden
	}
	member, err := s.users.Find(ctx, memberID)
	if err != nil {
		return err
	}
	if member.Role != identity.RoleMember {
		return ErrForbidden
	}
	if p.Is(identity.RoleSubAdmin) && member.SocietyID != p.SocietyID {
		return ErrForbidden
	}
	return s.users.Approve(ctx, memberID, p.UserID, s.now().UTC())
}

// PendingMembers lists unapproved members of a society for the approval
// queue.
func (s *Service) PendingMembers(ctx context.Context, p Principal, societyID string) ([]*identity.User, error) {
	if !p.Is(identity.RoleAdmin, identity.RoleSubAdmin) {
		return nil, ErrForbidden
	}
	if p.Is(identity.RoleSubAdmin) && societyID != p.SocietyID {
		return nil, ErrForbidden
	}
	return s.users.ListPendingMembers(ctx, societyID)
}

// Invite opens an invitation on behalf of the principal. ADMIN invites
// SUB_ADMIN into any society; SUB_ADMIN invites STAFF and MEMBER into their
// own.
func (s *Service) Invite(ctx context.Context, p Principal, req invite.CreateRequest) (*invite.Invitation, *otp.Record, error) {
	switch {
	case p.Is(identity.RoleAdmin) && req.Role == identity.RoleSubAdmin:
	case p.Is(identity.RoleSubAdmin) &&
		(req.Role == identity.RoleStaff || req.Role == identity.RoleMember) &&
		req.SocietyID == p.SocietyID:
	default:
		return nil, nil, ErrForbidden
	}
	req.InvitedBy = p.UserID
	inv, code, err := s.invites.Create(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := s.notifier.SendCode(ctx, code); err != nil {
		return nil, nil, err
	}
	return inv, code, nil
}

// CancelInvitation withdraws a pending invitation. The inviter, any ADMIN
// and the society's SUB_ADMIN may cancel.
func (s *Service) CancelInvitation(ctx context.Context, p Principal, id string) error {
	inv, err := s.invites.Get(ctx, id)
	if err != nil {
		return err
	}
	allowed := p.Is(identity.RoleAdmin) ||
		inv.InvitedBy == p.UserID ||
		(p.Is(identity.RoleSubAdmin) && inv.SocietyID == p.SocietyID)
	if !allowed {
		return ErrForbidden
	}
	return s.invites.Cancel(ctx, id)
}

// RejectInvitation records the invitee declining. The invitee holds only the
// invitation id, so this takes no principal.
func (s *Service) RejectInvitation(ctx context.Context, id string) error {
	return s.invites.Reject(ctx, id)
}

// VerifyInvitationOTP proves the invited phone. The invitee receives only
// the code, not the invitation id, so the lookup is keyed by contact.
func (s *Service) VerifyInvitationOTP(ctx context.Context, phone, code string) (*invite.Invitation, error) {
	return s.invites.VerifyOTPByPhone(ctx, phone, code)
}

// CompleteInvitation finishes the handshake and logs the new account in.
func (s *Service) CompleteInvitation(ctx context.Context, id string, req invite.CompleteRequest) (*identity.User, TokenPair, error) {
	u, err := s.invites.Complete(ctx, id, req)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := GenerateTokenPair(u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// ListInvitations returns a society's invitations for privileged callers.
func (s *Service) ListInvitations(ctx context.Context, p Principal, societyID string) ([]*invite.Invitation, error) {
	if !p.Is(identity.RoleAdmin, identity.RoleSubAdmin) {
		return nil, ErrForbidden
	}
	if p.Is(identity.RoleSubAdmin) && societyID != p.SocietyID {
		return nil, ErrForbidden
	}
	return s.invites.ListBySociety(ctx, societyID)
}

// GetInvitation exposes one invitation to its holder; used by the invitee
// flow, so it takes no principal.
func (s *Service) GetInvitation(ctx context.Context, id string) (*invite.Invitation, error) {
	return s.invites.Get(ctx, id)
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, p Principal) (*identity.User, error) {
	return s.users.Find(ctx, p.UserID)
}

func (s *Service) issueAndNotify(ctx context.Context, req otp.IssueRequest) (*otp.Record, error) {
	rec, err := s.otps.Issue(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendCode(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
