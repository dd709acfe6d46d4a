package society

import (
	"context"
	"sort"
	"sync"
	"time"

	"societyhub.org/internal/ids"
)

// InMemory implements Store for tests and demo runs.
type InMemory struct {
	mu   sync.Mutex
	rows map[string]*Society
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[string]*Society)}
}

func (s *InMemory) Create(ctx context.Context, soc *Society) error {
	if err := soc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if soc.ID == "" {
		soc.ID = ids.New()
	}
	now := time.Now().UTC()
	soc.CreatedAt = now
	soc.UpdatedAt = now
	cp := *soc
	s.rows[soc.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Society, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	soc, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *soc
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context) ([]*Society, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Society
	for _, soc := range s.rows {
		cp := *soc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
