package otp

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and single-node demo deployments; production uses PGStore.
type InMemory struct {
	mu   sync.Mutex
	recs []*Record
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Issue(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.Phone == rec.Phone && r.Purpose == rec.Purpose && !r.Used && !r.Expired {
			r.Expired = true
		}
	}
	cp := *rec
	s.recs = append(s.recs, &cp)
	return nil
}

func (s *InMemory) MarkUsed(ctx context.Context, phone, code string, purpose Purpose, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.Phone == phone && r.Code == code && r.Purpose == purpose && !r.Used && !r.Expired {
			if now.After(r.ExpiresAt) {
				return nil, ErrInvalidOrExpired
			}
			r.Used = true
			verified := now
			r.VerifiedAt = &verified
			out := *r
			return &out, nil
		}
	}
	return nil, ErrInvalidOrExpired
}

func (s *InMemory) MarkExpired(ctx context.Context, phone, code string, purpose Purpose, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.Phone == phone && r.Code == code && r.Purpose == purpose && !r.Used && !r.Expired && now.After(r.ExpiresAt) {
			r.Expired = true
			return true, nil
		}
	}
	return false, nil
}

// Snapshot returns copies of every record for a phone, newest first. Test
// helper; the ledger itself never lists records.
func (s *InMemory) Snapshot(phone string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for i := len(s.recs) - 1; i >= 0; i-- {
		if s.recs[i].Phone == phone {
			out = append(out, *s.recs[i])
		}
	}
	return out
}
