package invite

import (
	"context"
	"time"
)

// Store describes persistence for invitations. Transition methods are
// conditional on the current status so that two racing writers cannot both
// move the same row out of PENDING.
type Store interface {
	// Create inserts inv, returning ErrDuplicatePending when a PENDING
	// invitation already exists for (society, phone).
	Create(ctx context.Context, inv *Invitation) error

	Find(ctx context.Context, id string) (*Invitation, error)

	// FindPending returns the PENDING invitation for (society, phone), or
	// ErrNotFound.
	FindPending(ctx context.Context, societyID, phone string) (*Invitation, error)

	// FindPendingByPhone returns the newest PENDING invitation for phone
	// whose code is still unverified, or ErrNotFound.
	FindPendingByPhone(ctx context.Context, phone string) (*Invitation, error)

	// MarkVerified sets the otp_verified flag on a PENDING row. It reports
	// false when the row is missing or no longer pending.
	MarkVerified(ctx context.Context, id string) (bool, error)

	// Transition moves a row from PENDING to a terminal status, stamping the
	// response time. It reports false when the row was not pending.
	Transition(ctx context.Context, id string, to Status, at time.Time) (bool, error)

	// MarkTimedOut flags a PENDING row whose window closed before now as
	// EXPIRED. It reports whether the flag was applied on this call.
	MarkTimedOut(ctx context.Context, id string, now time.Time) (bool, error)

	// ListBySociety returns all invitations for a society, newest first.
	ListBySociety(ctx context.Context, societyID string) ([]*Invitation, error)
}
