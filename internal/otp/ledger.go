package otp

import (
	"context"
	"errors"
	"strings"
	"time"

	"societyhub.org/internal/ids"
	"societyhub.org/internal/obs"
)

const defaultTTL = 10 * time.Minute

// Ledger is the authoritative record of issued verification codes. Issuing a
// new code supersedes any live code for the same (phone, purpose) pair, and
// a code is consumable exactly once.
type Ledger struct {
	store   Store
	now     func() time.Time
	ttl     time.Duration
	codeLen int
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

// WithTTL overrides the default code lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithCodeLength overrides the generated code width.
func WithCodeLength(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.codeLen = n
		}
	}
}

// NewLedger constructs a Ledger backed by the given store.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		now:     time.Now,
		ttl:     defaultTTL,
		codeLen: DefaultCodeLength,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IssueRequest carries the subject a code is bound to. UserID and Email are
// optional; registration codes routinely target phones with no user yet.
type IssueRequest struct {
	Phone   string
	Purpose Purpose
	UserID  string
	Email   string
}

// Issue supersedes any live code for (phone, purpose) and creates a fresh
// one. The returned record includes the plaintext code; delivery is the
// caller's concern.
func (l *Ledger) Issue(ctx context.Context, req IssueRequest) (*Record, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	if _, err := ParsePurpose(string(req.Purpose)); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	rec := &Record{
		ID:        ids.New(),
		UserID:    req.UserID,
		Phone:     phone,
		Email:     strings.TrimSpace(req.Email),
		Code:      GenerateCode(l.codeLen),
		Purpose:   req.Purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	if err := l.store.Issue(ctx, rec); err != nil {
		return nil, err
	}
	obs.ObserveOTPIssued(rec.Purpose.String())
	return rec, nil
}

// Consume verifies and burns a code. A record that matches but has timed out
// is flagged expired on this touch (expiry is lazy, there is no background
// sweeper). All failure modes surface as ErrInvalidOrExpired.
func (l *Ledger) Consume(ctx context.Context, phone, code string, purpose Purpose) (*Record, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, ErrInvalidOrExpired
	}
	if _, err := ParsePurpose(string(purpose)); err != nil {
		return nil, ErrInvalidOrExpired
	}

	now := l.now().UTC()
	rec, err := l.store.MarkUsed(ctx, phone, code, purpose, now)
	if err == nil {
		obs.ObserveOTPConsume(purpose.String(), "ok")
		return rec, nil
	}
	if errors.Is(err, ErrInvalidOrExpired) {
		// The record may exist but be past its expiry: flag it now so the
		// audit trail reflects the terminal state.
		if _, expireErr := l.store.MarkExpired(ctx, phone, code, purpose, now); expireErr != nil {
			return nil, expireErr
		}
		obs.ObserveOTPConsume(purpose.String(), "rejected")
		return nil, ErrInvalidOrExpired
	}
	return nil, err
}
