package history

import (
	"context"
	"sync"

	"driverreview/internal/models"
)

const DefaultLimit = 100

// Store keeps the approve and reject decisions made from the console.
type Store interface {
	Record(ctx context.Context, d models.Decision) error
	Recent(ctx context.Context, limit int) ([]models.Decision, error)
	Close() error
}

// Memory is a process-local Store used when no database is configured.
// Decisions are lost on restart.
type Memory struct {
	mu        sync.RWMutex
	decisions []models.Decision
	nextID    int64
	max       int
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultLimit
	}
	return &Memory{max: max}
}

func (m *Memory) Record(_ context.Context, d models.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	d.ID = m.nextID
	d.Reasons = append([]string(nil), d.Reasons...)
	m.decisions = append(m.decisions, d)
	if len(m.decisions) > m.max {
		m.decisions = m.decisions[len(m.decisions)-m.max:]
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]models.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.decisions) {
		limit = len(m.decisions)
	}
	out := make([]models.Decision, 0, limit)
	for i := len(m.decisions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.decisions[i])
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
