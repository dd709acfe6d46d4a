// Package invite tracks the lifecycle of invitations a society office sends
// to prospective staff and members. An invitation is a short-lived claim on a
// phone number: the invitee proves control of the phone with a one-time code,
// then completes signup with a password, landing as a pre-approved account.
package invite

import (
	"errors"
	"time"

	"societyhub.org/internal/identity"
)

// Status is the lifecycle state of an invitation. PENDING is the only live
// state; every other status is terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string { return string(s) }

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool { return s != StatusPending }

var (
	ErrNotFound         = errors.New("invite: invitation not found")
	ErrInvalidRequest   = errors.New("invite: missing or malformed field")
	ErrDuplicatePending = errors.New("invite: a pending invitation already exists for this phone")
	ErrUserExists       = errors.New("invite: phone already belongs to a registered user")
	ErrNotPending       = errors.New("invite: invitation is no longer pending")
	ErrExpired          = errors.New("invite: invitation has expired")
	ErrNotVerified      = errors.New("invite: phone has not been verified for this invitation")
)

// Invitation is one row of the invitation ledger.
type Invitation struct {
	ID          string        `json:"id"`
	SocietyID   string        `json:"society_id"`
	Phone       string        `json:"phone_number"`
	Email       string        `json:"email,omitempty"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name,omitempty"`
	Role        identity.Role `json:"role"`
	InvitedBy   string        `json:"invited_by"`
	Status      Status        `json:"status"`
	OTPVerified bool          `json:"otp_verified"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
}

// TimedOut reports whether the invitation window has closed at the given
// instant. It says nothing about Status; callers flag the row separately.
func (inv *Invitation) TimedOut(now time.Time) bool {
	return now.After(inv.ExpiresAt)
}
