package invite

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store for tests and demo runs.
type InMemory struct {
	mu   sync.Mutex
	rows map[string]*Invitation // keyed by ID
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[string]*Invitation)}
}

func (s *InMemory) Create(ctx context.Context, inv *Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.Status == StatusPending &&
			existing.SocietyID == inv.SocietyID && existing.Phone == inv.Phone {
			return ErrDuplicatePending
		}
	}
	cp := *inv
	s.rows[inv.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *InMemory) FindPending(ctx context.Context, societyID, phone string) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.rows {
		if inv.Status == StatusPending && inv.SocietyID == societyID && inv.Phone == phone {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) FindPendingByPhone(ctx context.Context, phone string) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *Invitation
	for _, inv := range s.rows {
		if inv.Status != StatusPending || inv.OTPVerified || inv.Phone != phone {
			continue
		}
		if found == nil || inv.CreatedAt.After(found.CreatedAt) {
			found = inv
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (s *InMemory) MarkVerified(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok || inv.Status != StatusPending {
		return false, nil
	}
	inv.OTPVerified = true
	return true, nil
}

func (s *InMemory) Transition(ctx context.Context, id string, to Status, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok || inv.Status != StatusPending {
		return false, nil
	}
	inv.Status = to
	stamp := at
	inv.RespondedAt = &stamp
	return true, nil
}

func (s *InMemory) MarkTimedOut(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[id]
	if !ok || inv.Status != StatusPending || !now.After(inv.ExpiresAt) {
		return false, nil
	}
	inv.Status = StatusExpired
	return true, nil
}

func (s *InMemory) ListBySociety(ctx context.Context, societyID string) ([]*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Invitation
	for _, inv := range s.rows {
		if inv.SocietyID == societyID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
