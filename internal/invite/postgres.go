package invite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

// PGStore implements Store using PostgreSQL. The one-pending-per-phone rule
// rests on a partial unique index over (society_id, phone_number) where
// status = 'PENDING'; transitions are single conditional updates so only one
// writer moves a row out of PENDING.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const inviteColumns = `id, society_id, phone_number, coalesce(email,''), first_name,
	coalesce(last_name,''), role, invited_by, status, otp_verified,
	created_at, expires_at, responded_at`

func (s *PGStore) Create(ctx context.Context, inv *Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		insert into invitations (id, society_id, phone_number, email, first_name, last_name,
		                         role, invited_by, status, otp_verified, created_at, expires_at)
		values ($1, $2, $3, nullif($4,''), $5, nullif($6,''), $7, $8, $9, $10, $11, $12)
	`, inv.ID, inv.SocietyID, inv.Phone, inv.Email, inv.FirstName, inv.LastName,
		inv.Role, inv.InvitedBy, inv.Status, inv.OTPVerified, inv.CreatedAt, inv.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Invitation, error) {
	row := s.db.QueryRowContext(ctx, `select `+inviteColumns+` from invitations where id = $1`, id)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *PGStore) FindPending(ctx context.Context, societyID, phone string) (*Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+inviteColumns+` from invitations
		where society_id = $1 and phone_number = $2 and status = 'PENDING'
	`, societyID, phone)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *PGStore) FindPendingByPhone(ctx context.Context, phone string) (*Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+inviteColumns+` from invitations
		where phone_number = $1 and status = 'PENDING' and not otp_verified
		order by created_at desc
		limit 1
	`, phone)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *PGStore) MarkVerified(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set otp_verified = true
		where id = $1 and status = 'PENDING'
	`, id)
	if err != nil {
		return false, err
	}
	return oneRow(res)
}

func (s *PGStore) Transition(ctx context.Context, id string, to Status, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set status = $2, responded_at = $3
		where id = $1 and status = 'PENDING'
	`, id, to, at)
	if err != nil {
		return false, err
	}
	return oneRow(res)
}

func (s *PGStore) MarkTimedOut(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set status = 'EXPIRED'
		where id = $1 and status = 'PENDING' and expires_at < $2
	`, id, now)
	if err != nil {
		return false, err
	}
	return oneRow(res)
}

func (s *PGStore) ListBySociety(ctx context.Context, societyID string) ([]*Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+inviteColumns+` from invitations
		where society_id = $1
		order by created_at desc
	`, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvitation(sc interface{ Scan(dest ...any) error }) (*Invitation, error) {
	var (
		inv       Invitation
		responded sql.NullTime
	)
	if err := sc.Scan(&inv.ID, &inv.SocietyID, &inv.Phone, &inv.Email, &inv.FirstName,
		&inv.LastName, &inv.Role, &inv.InvitedBy, &inv.Status, &inv.OTPVerified,
		&inv.CreatedAt, &inv.ExpiresAt, &responded); err != nil {
		return nil, err
	}
	if responded.Valid {
		t := responded.Time
		inv.RespondedAt = &t
	}
	return &inv, nil
}

func oneRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
