// Package storetest provides in-memory stores for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/model"
	"github.com/psds-microservice/apihub-support/internal/store"
)

// Tickets is a TicketStore backed by a map. Set Err to make every call fail.
type Tickets struct {
	mu     sync.Mutex
	nextID uint64
	items  map[uint64]model.Ticket
	Err    error
}

func NewTickets() *Tickets {
	return &Tickets{items: make(map[uint64]model.Ticket)}
}

var _ store.TicketStore = (*Tickets)(nil)

func (s *Tickets) Create(_ context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.nextID++
	t.ID = s.nextID
	s.items[t.ID] = *t
	return nil
}

func (s *Tickets) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	t, ok := s.items[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	return &t, nil
}

func (s *Tickets) List(_ context.Context, f store.TicketFilter) ([]model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Ticket
	for _, t := range s.items {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Tickets) Close(_ context.Context, id uint64, at time.Time) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	t, ok := s.items[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	t.Status = model.TicketStatusClosed
	t.ClosedAt = &at
	t.UpdatedAt = at
	s.items[id] = t
	return &t, nil
}

func (s *Tickets) All(ctx context.Context) ([]model.Ticket, error) {
	items, err := s.List(ctx, store.TicketFilter{})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Put stores t as-is, keeping its ID and timestamps.
func (s *Tickets) Put(t model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID > s.nextID {
		s.nextID = t.ID
	}
	s.items[t.ID] = t
}

func (s *Tickets) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Usage is an in-memory UsageStore.
type Usage struct {
	mu   sync.Mutex
	logs []model.UsageLog
	Err  error
}

var _ store.UsageStore = (*Usage)(nil)

func (s *Usage) Record(_ context.Context, l *model.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	l.ApplyDefaults(time.Now().UTC())
	l.ID = uint64(len(s.logs) + 1)
	s.logs = append(s.logs, *l)
	return nil
}

func (s *Usage) Since(_ context.Context, since time.Time) ([]model.UsageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.UsageLog
	for _, l := range s.logs {
		if !l.Timestamp.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}
