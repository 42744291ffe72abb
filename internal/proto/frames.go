package proto

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/mdlayher/arp"
	"github.com/mdlayher/ethernet"

	"github.com/SepehrImanian/vrrpown/internal/domain"
)

const (
	// TakeoverPriority wins against the default (100) and almost any
	// override, and stays below the address-owner value (255).
	TakeoverPriority uint8 = 250
	OwnerPriority    uint8 = 255

	AdvertisementTTL uint8 = 255
	echoReplyTTL     uint8 = 64
)

var (
	MulticastMAC  = net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x00, 0x12}
	MulticastAddr = netip.AddrFrom4([4]byte{224, 0, 0, 18})

	BroadcastMAC  = ethernet.Broadcast
	BroadcastAddr = netip.AddrFrom4([4]byte{255, 255, 255, 255})
)

// VirtualMAC is the IANA virtual router MAC for vrid: 00:00:5e:00:01:{vrid}.
func VirtualMAC(vrid uint8) net.HardwareAddr {
	return net.HardwareAddr{0x00, 0x00, 0x5e, 0x00, 0x01, vrid}
}

// BuildAdvertisement forges an advertisement for r at TakeoverPriority.
func BuildAdvertisement(src netip.Addr, r domain.VirtualRouter) ([]byte, error) {
	return BuildAdvertisementWithPriority(src, r, TakeoverPriority)
}

func BuildAdvertisementWithPriority(src netip.Addr, r domain.VirtualRouter, prio uint8) ([]byte, error) {
	if !src.Is4() {
		return nil, fmt.Errorf("source %s is not IPv4", src)
	}
	eth := &layers.Ethernet{
		SrcMAC:       VirtualMAC(r.VRID),
		DstMAC:       MulticastMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      AdvertisementTTL,
		Protocol: IPProtocolVRRP,
		SrcIP:    src.AsSlice(),
		DstIP:    MulticastAddr.AsSlice(),
	}
	adv := &Advertisement{
		Version:   r.Version,
		Type:      TypeAdvertisement,
		VRID:      r.VRID,
		Priority:  prio,
		AuthType:  0,
		AdvertInt: r.AdvertInt,
		Addresses: r.Addresses,
	}
	adv.SetPseudoHeader(src, MulticastAddr)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, adv); err != nil {
		return nil, fmt.Errorf("serialize advertisement for vrid %d: %w", r.VRID, err)
	}
	return buf.Bytes(), nil
}

// BuildARPReply asserts srcIP is-at srcMAC. With dstMAC set to the broadcast
// address the reply is a gratuitous announcement.
func BuildARPReply(dstMAC, srcMAC net.HardwareAddr, dstIP, srcIP netip.Addr) ([]byte, error) {
	p, err := arp.NewPacket(arp.OperationReply, srcMAC, srcIP, dstMAC, dstIP)
	if err != nil {
		return nil, err
	}
	pb, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	f := &ethernet.Frame{
		Destination: dstMAC,
		Source:      srcMAC,
		EtherType:   ethernet.EtherTypeARP,
		Payload:     pb,
	}
	return f.MarshalBinary()
}

// BuildGratuitousARP broadcasts vip is-at mac.
func BuildGratuitousARP(mac net.HardwareAddr, vip netip.Addr) ([]byte, error) {
	return BuildARPReply(BroadcastMAC, mac, BroadcastAddr, vip)
}

// BuildEchoReply answers an echo with the same identifier, sequence and
// payload. An empty payload produces a reply without one.
func BuildEchoReply(dstMAC, srcMAC net.HardwareAddr, dstIP, srcIP netip.Addr, id, seq uint16, payload []byte) ([]byte, error) {
	if !dstIP.Is4() || !srcIP.Is4() {
		return nil, fmt.Errorf("echo reply %s -> %s: addresses must be IPv4", srcIP, dstIP)
	}
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      echoReplyTTL,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    srcIP.AsSlice(),
		DstIP:    dstIP.AsSlice(),
	}
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
		Id:       id,
		Seq:      seq,
	}

	sl := []gopacket.SerializableLayer{eth, ip, icmp}
	if len(payload) > 0 {
		sl = append(sl, gopacket.Payload(payload))
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, sl...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
