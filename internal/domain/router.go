package domain

import (
	"net"
	"net/netip"
	"time"
)

// VirtualRouter is the configuration learned for one VRID from a captured
// advertisement. It is never modified once stored.
type VirtualRouter struct {
	Version uint8
	VRID    uint8
	// Priority advertised by the legitimate master.
	Priority uint8
	// AdvertInt is the raw interval field: seconds for v2, centiseconds for v3.
	AdvertInt uint16
	Addresses []netip.Addr

	AuthType uint8
	Auth1    uint32
	Auth2    uint32

	Source    netip.Addr
	SourceMAC net.HardwareAddr
}

// Interval decodes AdvertInt according to the protocol version.
func (r VirtualRouter) Interval() time.Duration {
	if r.Version == 3 {
		return time.Duration(r.AdvertInt) * 10 * time.Millisecond
	}
	return time.Duration(r.AdvertInt) * time.Second
}

// VIPSet is the concatenation of every learned router's addresses, in
// learning order. Duplicates across routers are kept.
type VIPSet struct {
	list  []netip.Addr
	index map[netip.Addr]struct{}
}

func NewVIPSet(routers []VirtualRouter) *VIPSet {
	s := &VIPSet{index: make(map[netip.Addr]struct{})}
	for _, r := range routers {
		for _, a := range r.Addresses {
			s.list = append(s.list, a)
			s.index[a] = struct{}{}
		}
	}
	return s
}

func (s *VIPSet) Contains(a netip.Addr) bool {
	_, ok := s.index[a.Unmap()]
	return ok
}

func (s *VIPSet) All() []netip.Addr {
	out := make([]netip.Addr, len(s.list))
	copy(out, s.list)
	return out
}

func (s *VIPSet) Len() int { return len(s.list) }
