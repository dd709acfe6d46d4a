package identity

import (
	"context"
	"sync"
	"time"

	"societyhub.org/internal/ids"
)

// InMemory implements Store for tests and demo runs.
type InMemory struct {
	mu    sync.Mutex
	users map[string]*User // keyed by ID
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]*User)}
}

func (s *InMemory) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Phone == u.Phone {
			return ErrDuplicatePhone
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByPhone(ctx context.Context, phone string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) Approve(ctx context.Context, userID, approverID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Approved = true
	u.ApprovedBy = approverID
	stamp := at
	u.ApprovedAt = &stamp
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) FindApprovedContact(ctx context.Context, role Role, societyID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *User
	for _, u := range s.users {
		if u.Role == role && u.SocietyID == societyID && u.Active && u.Approved {
			if best == nil || u.CreatedAt.Before(best.CreatedAt) {
				best = u
			}
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *InMemory) ListPendingMembers(ctx context.Context, societyID string) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*User
	for _, u := range s.users {
		if u.Role == RoleMember && u.SocietyID == societyID && !u.Approved && u.Active {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
