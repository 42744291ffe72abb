package ports

import (
	"github.com/SepehrImanian/vrrpown/internal/domain"
)

type RouterRepo interface {
	// Add stores r unless its VRID is already known.
	Add(r domain.VirtualRouter) bool
	Has(vrid uint8) bool
	// List returns routers in the order they were added.
	List() []domain.VirtualRouter
	VIPs() *domain.VIPSet
}
