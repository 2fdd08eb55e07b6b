package database

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"sortec/entity"
)

// Memory keeps registrations in process memory. Insertion order is kept for
// listing. It is used for the local environment and in tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*entity.Registration
	order   []string
	counter int64
	seeded  bool
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*entity.Registration),
	}
}

func (m *Memory) CreateRegistration(_ context.Context, reg *entity.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[reg.Id]; ok {
		return fmt.Errorf("duplicate id %s", reg.Id)
	}
	if code := reg.Code(); code != "" {
		for _, r := range m.records {
			if r.Code() == code {
				return fmt.Errorf("duplicate contest code %s", code)
			}
		}
	}
	m.records[reg.Id] = reg.Clone()
	m.order = append(m.order, reg.Id)
	return nil
}

func (m *Memory) GetRegistration(_ context.Context, id string) (*entity.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return reg.Clone(), nil
}

func (m *Memory) GetRegistrationByCode(_ context.Context, code string) (*entity.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, reg := range m.records {
		if reg.Code() == code {
			return reg.Clone(), nil
		}
	}
	return nil, nil
}

// Registrations iterates over a snapshot of the ids taken when iteration starts.
func (m *Memory) Registrations(ctx context.Context) iter.Seq2[*entity.Registration, error] {
	return func(yield func(*entity.Registration, error) bool) {
		m.mu.RLock()
		ids := make([]string, len(m.order))
		copy(ids, m.order)
		m.mu.RUnlock()

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			reg, _ := m.GetRegistration(ctx, id)
			if reg == nil {
				continue
			}
			if !yield(reg, nil) {
				return
			}
		}
	}
}

func (m *Memory) UpdateParticipant(_ context.Context, id string, p *entity.Participant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.records[id]
	if !ok {
		return false, nil
	}
	reg.Participant = *p
	return true, nil
}

func (m *Memory) SetStatus(_ context.Context, id string, from, to entity.Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.records[id]
	if !ok || reg.Status != from {
		return false, nil
	}
	reg.Status = to
	reg.DecidedAt = &at
	return true, nil
}

func (m *Memory) DeleteRegistration(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) CountRegistrations(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

// Next increments the correlative under the store lock.
func (m *Memory) Next(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeded = true
	m.counter++
	return m.counter, nil
}

// Seed sets the counter once, before the first allocation.
func (m *Memory) Seed(_ context.Context, floor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seeded {
		return nil
	}
	m.seeded = true
	if floor > m.counter {
		m.counter = floor
	}
	return nil
}
