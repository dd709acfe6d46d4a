package society

import (
	"context"
	"database/sql"
	"errors"

	"societyhub.org/internal/ids"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const societyColumns = `id, name, coalesce(address,''), coalesce(city,''), coalesce(state,''),
	coalesce(pincode,''), created_by, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, soc *Society) error {
	if err := soc.Validate(); err != nil {
		return err
	}
	if soc.ID == "" {
		soc.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into societies (id, name, address, city, state, pincode, created_by)
		values ($1, $2, nullif($3,''), nullif($4,''), nullif($5,''), nullif($6,''), $7)
		returning created_at, updated_at
	`, soc.ID, soc.Name, soc.Address, soc.City, soc.State, soc.Pincode, soc.CreatedBy)
	return row.Scan(&soc.CreatedAt, &soc.UpdatedAt)
}

func (s *PGStore) Find(ctx context.Context, id string) (*Society, error) {
	row := s.db.QueryRowContext(ctx, `select `+societyColumns+` from societies where id = $1`, id)
	soc, err := scanSociety(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return soc, nil
}

func (s *PGStore) List(ctx context.Context) ([]*Society, error) {
	rows, err := s.db.QueryContext(ctx, `select `+societyColumns+` from societies order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Society
	for rows.Next() {
		soc, err := scanSociety(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, soc)
	}
	return out, rows.Err()
}

func scanSociety(sc interface{ Scan(dest ...any) error }) (*Society, error) {
	var soc Society
	if err := sc.Scan(&soc.ID, &soc.Name, &soc.Address, &soc.City, &soc.State,
		&soc.Pincode, &soc.CreatedBy, &soc.CreatedAt, &soc.UpdatedAt); err != nil {
		return nil, err
	}
	return &soc, nil
}
