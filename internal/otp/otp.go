package otp

import (
	"errors"
	"fmt"
	"time"
)

// Purpose binds a code to the single flow it may satisfy. A LOGIN code can
// never satisfy a FORGOT_PASSWORD check.
type Purpose string

const (
	PurposeRegistration      Purpose = "REGISTRATION"
	PurposeLogin             Purpose = "LOGIN"
	PurposeForgotPassword    Purpose = "FORGOT_PASSWORD"
	PurposePhoneVerification Purpose = "PHONE_VERIFICATION"
)

var (
	// ErrInvalidOrExpired covers wrong code, expired code and already-used
	// code alike; callers are deliberately unable to tell which.
	ErrInvalidOrExpired = errors.New("otp: invalid or expired code")

	ErrInvalidPurpose = errors.New("otp: invalid purpose")
	ErrInvalidPhone   = errors.New("otp: phone number is required")
)

// ParsePurpose validates a wire-level purpose string.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeRegistration, PurposeLogin, PurposeForgotPassword, PurposePhoneVerification:
		return Purpose(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPurpose, s)
}

func (p Purpose) String() string { return string(p) }

// Record is one issued verification code. Records are append-only: they are
// flipped to used or expired, never deleted.
type Record struct {
	ID         string
	UserID     string // optional link to an existing user
	Phone      string
	Email      string
	Code       string
	Purpose    Purpose
	Used       bool
	Expired    bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}

// ValidAt reports whether the record can still be consumed at the given
// instant.
func (r *Record) ValidAt(now time.Time) bool {
	return !r.Used && !r.Expired && !now.After(r.ExpiresAt)
}
