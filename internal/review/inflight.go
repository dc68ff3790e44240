package review

import "sync"

// InFlight tracks drivers with a decision currently being sent so that two
// operators (or two tabs) cannot submit for the same driver at once.
type InFlight struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{active: make(map[int64]struct{})}
}

// Acquire returns false when telegramID already has a mutation pending.
func (g *InFlight) Acquire(telegramID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[telegramID]; busy {
		return false
	}
	g.active[telegramID] = struct{}{}
	return true
}

func (g *InFlight) Release(telegramID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, telegramID)
}

func (g *InFlight) Busy(telegramID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[telegramID]
	return busy
}
