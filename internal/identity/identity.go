package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of platform roles. ADMIN operates across societies,
// SUB_ADMIN chairs exactly one society, MEMBER and STAFF belong to one.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSubAdmin Role = "SUB_ADMIN"
	RoleMember   Role = "MEMBER"
	RoleStaff    Role = "STAFF"
)

var (
	ErrNotFound       = errors.New("identity: not found")
	ErrDuplicatePhone = errors.New("identity: phone number already registered")
	ErrInvalidPhone   = errors.New("identity: phone number is required")
	ErrInvalidRole    = errors.New("identity: invalid role")
)

// ParseRole validates a wire-level role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleSubAdmin, RoleMember, RoleStaff:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) String() string { return string(r) }

// User is a platform account. The phone number is the sole authentication
// identifier and is globally unique.
type User struct {
	ID           string     `json:"id"`
	Phone        string     `json:"phone_number"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	SocietyID    string     `json:"society_id,omitempty"`
	Approved     bool       `json:"is_approved"`
	ApprovedBy   string     `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approval_date,omitempty"`
	Active       bool       `json:"is_active"`
	Superuser    bool       `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName joins the name fields for display in messages.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
