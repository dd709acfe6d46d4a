package auth

import (
	"errors"
	"fmt"

	"societyhub.org/internal/identity"
)

var (
	// ErrUnauthorized covers every credential failure on login. Wrong phone,
	// wrong password and wrong code all read the same from outside.
	ErrUnauthorized = errors.New("auth: invalid credentials")

	// ErrForbidden indicates the caller is authenticated but lacks the role
	// or scope for the operation.
	ErrForbidden = errors.New("auth: operation not permitted")
)

// PendingApprovalError rejects a login from a member whose account has not
// been approved yet. Contact, when present, is the society office to chase.
type PendingApprovalError struct {
	Contact *identity.User
}

func (e *PendingApprovalError) Error() string {
	if e.Contact == nil {
		return "auth: account pending approval"
	}
	return fmt.Sprintf("auth: account pending approval, contact %s (%s)",
		e.Contact.FullName(), e.Contact.Phone)
}

// AsPendingApproval unwraps err into a PendingApprovalError if it is one.
func AsPendingApproval(err error) (*PendingApprovalError, bool) {
	var pae *PendingApprovalError
	if errors.As(err, &pae) {
		return pae, true
	}
	return nil, false
}
