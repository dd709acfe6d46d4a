package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"societyhub.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, phone_number, coalesce(email,''), first_name, last_name,
	coalesce(password_hash,''), role, coalesce(society_id,''), is_approved,
	coalesce(approved_by,''), approval_date, is_active, is_superuser, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, phone_number, email, first_name, last_name, password_hash,
		                   role, society_id, is_approved, approved_by, approval_date,
		                   is_active, is_superuser)
		values ($1, $2, nullif($3,''), $4, $5, $6, $7, nullif($8,''), $9, nullif($10,''), $11, $12, $13)
		returning created_at, updated_at
	`, u.ID, u.Phone, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		u.Role, u.SocietyID, u.Approved, u.ApprovedBy, u.ApprovedAt, u.Active, u.Superuser)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrDuplicatePhone
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByPhone(ctx context.Context, phone string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where phone_number = $1`, phone)
	return scanUser(row)
}

func (s *PGStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set password_hash = $2, updated_at = now() where id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *PGStore) Approve(ctx context.Context, userID, approverID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users set is_approved = true, approved_by = $2, approval_date = $3, updated_at = now()
		where id = $1
	`, userID, approverID, at)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (s *PGStore) FindApprovedContact(ctx context.Context, role Role, societyID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users
		where role = $1 and society_id = $2 and is_active and is_approved
		order by created_at asc
		limit 1
	`, role, societyID)
	return scanUser(row)
}

func (s *PGStore) ListPendingMembers(ctx context.Context, societyID string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+` from users
		where role = 'MEMBER' and society_id = $1 and not is_approved and is_active
		order by created_at asc
	`, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFields(sc rowScanner) (*User, error) {
	var (
		u        User
		approved sql.NullTime
	)
	if err := sc.Scan(&u.ID, &u.Phone, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.Role, &u.SocietyID, &u.Approved,
		&u.ApprovedBy, &approved, &u.Active, &u.Superuser, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if approved.Valid {
		t := approved.Time
		u.ApprovedAt = &t
	}
	return &u, nil
}

func scanUser(row *sql.Row) (*User, error) {
	u, err := scanFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUserRow(rows *sql.Rows) (*User, error) {
	return scanFields(rows)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
