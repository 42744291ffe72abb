package proto

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Frame is one captured frame reduced to the protocol the tool acts on.
// The concrete types are *AdvertisementFrame, *ARPFrame and *EchoFrame.
type Frame interface {
	frame()
}

type AdvertisementFrame struct {
	SrcMAC net.HardwareAddr
	SrcIP  netip.Addr
	DstIP  netip.Addr
	TTL    uint8
	Adv    *Advertisement
}

type ARPFrame struct {
	Operation uint16
	SrcMAC    net.HardwareAddr
	SenderMAC net.HardwareAddr
	SenderIP  netip.Addr
	TargetIP  netip.Addr
}

// IsRequest reports whether the frame asks who-has TargetIP.
func (f *ARPFrame) IsRequest() bool { return f.Operation == layers.ARPRequest }

type EchoFrame struct {
	SrcMAC  net.HardwareAddr
	SrcIP   netip.Addr
	DstIP   netip.Addr
	Type    uint8
	ID      uint16
	Seq     uint16
	Payload []byte
}

func (*AdvertisementFrame) frame() {}
func (*ARPFrame) frame()           {}
func (*EchoFrame) frame()          {}

// Decode classifies an Ethernet frame. It returns nil for anything that is
// not a well formed VRRP advertisement, IPv4 ARP packet or ICMP echo.
func Decode(data []byte) Frame {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil
	}
	eth := ethLayer.(*layers.Ethernet)

	if arpLayer := pkt.Layer(layers.LayerTypeARP); arpLayer != nil {
		return decodeARP(eth, arpLayer.(*layers.ARP))
	}

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil
	}
	ip := ipLayer.(*layers.IPv4)
	src, ok1 := netip.AddrFromSlice(ip.SrcIP.To4())
	dst, ok2 := netip.AddrFromSlice(ip.DstIP.To4())
	if !ok1 || !ok2 {
		return nil
	}

	switch ip.Protocol {
	case IPProtocolVRRP:
		adv, err := DecodeAdvertisement(ip.Payload)
		if err != nil {
			return nil
		}
		return &AdvertisementFrame{
			SrcMAC: cloneMAC(eth.SrcMAC),
			SrcIP:  src,
			DstIP:  dst,
			TTL:    ip.TTL,
			Adv:    adv,
		}
	case layers.IPProtocolICMPv4:
		icmpLayer := pkt.Layer(layers.LayerTypeICMPv4)
		if icmpLayer == nil {
			return nil
		}
		icmp := icmpLayer.(*layers.ICMPv4)
		t := icmp.TypeCode.Type()
		if t != layers.ICMPv4TypeEchoRequest && t != layers.ICMPv4TypeEchoReply {
			return nil
		}
		var payload []byte
		if len(icmp.Payload) > 0 {
			payload = append([]byte(nil), icmp.Payload...)
		}
		return &EchoFrame{
			SrcMAC:  cloneMAC(eth.SrcMAC),
			SrcIP:   src,
			DstIP:   dst,
			Type:    t,
			ID:      icmp.Id,
			Seq:     icmp.Seq,
			Payload: payload,
		}
	}
	return nil
}

func decodeARP(eth *layers.Ethernet, a *layers.ARP) Frame {
	if a.Protocol != layers.EthernetTypeIPv4 || a.ProtAddressSize != 4 || a.HwAddressSize != 6 {
		return nil
	}
	sender, ok1 := netip.AddrFromSlice(a.SourceProtAddress)
	target, ok2 := netip.AddrFromSlice(a.DstProtAddress)
	if !ok1 || !ok2 {
		return nil
	}
	return &ARPFrame{
		Operation: a.Operation,
		SrcMAC:    cloneMAC(eth.SrcMAC),
		SenderMAC: cloneMAC(a.SourceHwAddress),
		SenderIP:  sender,
		TargetIP:  target,
	}
}

func cloneMAC(m []byte) net.HardwareAddr {
	return append(net.HardwareAddr(nil), m...)
}
