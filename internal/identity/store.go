package identity

import (
	"context"
	"time"
)

// Store describes persistence for user identities. Phone uniqueness is
// enforced here (unique index backstop) because several call paths create
// users: self-registration, privileged direct-add and invitation completion.
type Store interface {
	// Create inserts u, returning ErrDuplicatePhone when the phone is taken.
	Create(ctx context.Context, u *User) error

	Find(ctx context.Context, id string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)

	// UpdatePassword replaces the stored hash for one user row.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Approve flips the approval flag and stamps the approver.
	Approve(ctx context.Context, userID, approverID string, at time.Time) error

	// FindApprovedContact returns an active, approved user holding role
	// within the society, for use in pending-approval hints.
	FindApprovedContact(ctx context.Context, role Role, societyID string) (*User, error)

	// ListPendingMembers returns unapproved MEMBER accounts for a society.
	ListPendingMembers(ctx context.Context, societyID string) ([]*User, error)
}
