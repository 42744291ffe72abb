package netio

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/SepehrImanian/vrrpown/internal/config"
	"github.com/SepehrImanian/vrrpown/internal/ports"
)

type LocalInfo struct {
	cfg *config.Config
}

var _ ports.LocalInfo = (*LocalInfo)(nil)

func NewLocalInfo(cfg *config.Config) (*LocalInfo, error) {
	return &LocalInfo{cfg: cfg}, nil
}

// HardwareAddr returns the MAC of the configured interface. netlink is tried
// first; platforms without it fall back to the net package.
func (l *LocalInfo) HardwareAddr() (net.HardwareAddr, error) {
	var mac net.HardwareAddr
	if link, err := netlink.LinkByName(l.cfg.Interface); err == nil {
		mac = link.Attrs().HardwareAddr
	} else {
		ifi, err := net.InterfaceByName(l.cfg.Interface)
		if err != nil {
			return nil, err
		}
		mac = ifi.HardwareAddr
	}
	if len(mac) != 6 {
		return nil, fmt.Errorf("iface %s has no ethernet address", l.cfg.Interface)
	}
	out := make(net.HardwareAddr, 6)
	copy(out, mac)
	return out, nil
}
