package otp

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore implements Store using PostgreSQL. Atomicity requirements are met
// with a transaction around expire-then-insert on issue and single
// conditional updates on consume.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Issue(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		update otps set is_expired = true
		where phone_number = $1 and purpose = $2 and not is_used and not is_expired
	`, rec.Phone, rec.Purpose); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into otps(id, user_id, phone_number, email, otp_code, purpose, created_at, expires_at)
		values ($1, nullif($2,''), $3, nullif($4,''), $5, $6, $7, $8)
	`, rec.ID, rec.UserID, rec.Phone, rec.Email, rec.Code, rec.Purpose, rec.CreatedAt, rec.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) MarkUsed(ctx context.Context, phone, code string, purpose Purpose, now time.Time) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		update otps set is_used = true, verified_at = $4
		where phone_number = $1 and otp_code = $2 and purpose = $3
		  and not is_used and not is_expired and expires_at >= $4
		returning id, coalesce(user_id,''), phone_number, coalesce(email,''), otp_code, purpose,
		          is_used, is_expired, created_at, expires_at, verified_at
	`, phone, code, purpose, now)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PGStore) MarkExpired(ctx context.Context, phone, code string, purpose Purpose, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update otps set is_expired = true
		where phone_number = $1 and otp_code = $2 and purpose = $3
		  and not is_used and not is_expired and expires_at < $4
	`, phone, code, purpose, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		rec      Record
		verified sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Phone, &rec.Email, &rec.Code, &rec.Purpose,
		&rec.Used, &rec.Expired, &rec.CreatedAt, &rec.ExpiresAt, &verified); err != nil {
		return nil, err
	}
	if verified.Valid {
		t := verified.Time
		rec.VerifiedAt = &t
	}
	return &rec, nil
}
