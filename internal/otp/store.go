package otp

import (
	"context"
	"time"
)

// Store describes persistence operations required by the ledger. Both
// mutating operations must be atomic with respect to concurrent calls for
// the same key: Issue performs expire-then-insert in one transaction and
// MarkUsed is a single conditional update, so two concurrent issues cannot
// leave two live codes and two concurrent consumes cannot both win.
type Store interface {
	// Issue expires every live record for (rec.Phone, rec.Purpose) and
	// inserts rec, atomically.
	Issue(ctx context.Context, rec *Record) error

	// MarkUsed consumes the live record matching (phone, code, purpose)
	// whose expiry has not passed at now, stamping Used and VerifiedAt.
	// Returns ErrInvalidOrExpired when no such record exists.
	MarkUsed(ctx context.Context, phone, code string, purpose Purpose, now time.Time) (*Record, error)

	// MarkExpired lazily flags a live record matching (phone, code, purpose)
	// whose expiry has passed at now. Reports whether a record was flagged.
	MarkExpired(ctx context.Context, phone, code string, purpose Purpose, now time.Time) (bool, error)
}
