// Package society holds the minimal registry of residential societies that
// the rest of the service scopes accounts and invitations to.
package society

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("society: not found")
	ErrInvalidName = errors.New("society: name is required")
)

// Society is one managed residential society.
type Society struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Pincode   string    `json:"pincode,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields a caller must supply.
func (s *Society) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

// Store describes persistence for the registry.
type Store interface {
	Create(ctx context.Context, s *Society) error
	Find(ctx context.Context, id string) (*Society, error)
	List(ctx context.Context) ([]*Society, error)
}
