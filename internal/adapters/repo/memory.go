package repo

import (
	"sync"

	"github.com/SepehrImanian/vrrpown/internal/domain"
	"github.com/SepehrImanian/vrrpown/internal/ports"
)

// Memory keeps learned routers keyed by VRID. The first router stored for a
// VRID is kept; later ones are dropped.
type Memory struct {
	mu      sync.Mutex
	routers map[uint8]domain.VirtualRouter
	order   []uint8
}

var _ ports.RouterRepo = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		routers: make(map[uint8]domain.VirtualRouter),
	}
}

func (m *Memory) Add(r domain.VirtualRouter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routers[r.VRID]; ok {
		return false
	}
	m.routers[r.VRID] = r
	m.order = append(m.order, r.VRID)
	return true
}

func (m *Memory) Has(vrid uint8) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.routers[vrid]
	return ok
}

func (m *Memory) List() []domain.VirtualRouter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.VirtualRouter, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.routers[id])
	}
	return out
}

func (m *Memory) VIPs() *domain.VIPSet {
	return domain.NewVIPSet(m.List())
}
