package proto

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// IPProtocolVRRP is the IPv4 protocol number carrying advertisements.
	IPProtocolVRRP layers.IPProtocol = 112

	TypeAdvertisement uint8 = 1

	Version2 uint8 = 2
	Version3 uint8 = 3

	headerLen   = 8
	authDataLen = 8
)

// Advertisement is a VRRP advertisement message. Version 2 (RFC 3768) carries
// an auth type, an interval in seconds and 8 bytes of auth data; version 3
// (RFC 5798) carries a 12-bit interval in centiseconds and no auth data.
type Advertisement struct {
	Version   uint8
	Type      uint8
	VRID      uint8
	Priority  uint8
	AuthType  uint8
	AdvertInt uint16
	Checksum  uint16
	Addresses []netip.Addr
	Auth1     uint32
	Auth2     uint32

	// pseudo-header addresses, only used by the v3 checksum
	src, dst netip.Addr
}

var _ gopacket.SerializableLayer = (*Advertisement)(nil)

func (a *Advertisement) LayerType() gopacket.LayerType { return layers.LayerTypeVRRP }

// Len is the encoded size of the message.
func (a *Advertisement) Len() int {
	n := headerLen + 4*len(a.Addresses)
	if a.Version == Version2 {
		n += authDataLen
	}
	return n
}

// SetPseudoHeader records the IPv4 addresses a v3 checksum is computed over.
func (a *Advertisement) SetPseudoHeader(src, dst netip.Addr) {
	a.src, a.dst = src, dst
}

func (a *Advertisement) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if a.Version != Version2 && a.Version != Version3 {
		return fmt.Errorf("unsupported vrrp version %d", a.Version)
	}
	if len(a.Addresses) > 255 {
		return fmt.Errorf("too many addresses: %d", len(a.Addresses))
	}
	buf, err := b.PrependBytes(a.Len())
	if err != nil {
		return err
	}

	buf[0] = a.Version<<4 | a.Type&0x0f
	buf[1] = a.VRID
	buf[2] = a.Priority
	buf[3] = uint8(len(a.Addresses))
	if a.Version == Version2 {
		buf[4] = a.AuthType
		buf[5] = uint8(a.AdvertInt)
	} else {
		binary.BigEndian.PutUint16(buf[4:6], a.AdvertInt&0x0fff)
	}
	buf[6], buf[7] = 0, 0

	off := headerLen
	for _, ip := range a.Addresses {
		if !ip.Is4() {
			return fmt.Errorf("address %s is not IPv4", ip)
		}
		v4 := ip.As4()
		copy(buf[off:off+4], v4[:])
		off += 4
	}
	if a.Version == Version2 {
		binary.BigEndian.PutUint32(buf[off:off+4], a.Auth1)
		binary.BigEndian.PutUint32(buf[off+4:off+8], a.Auth2)
	}

	if opts.ComputeChecksums {
		a.Checksum = a.checksum(buf)
	}
	binary.BigEndian.PutUint16(buf[6:8], a.Checksum)
	return nil
}

func (a *Advertisement) checksum(msg []byte) uint16 {
	var sum uint32
	if a.Version == Version3 && a.src.Is4() && a.dst.Is4() {
		s, d := a.src.As4(), a.dst.As4()
		sum = sum16(s[:], sum)
		sum = sum16(d[:], sum)
		sum += uint32(IPProtocolVRRP)
		sum += uint32(len(msg))
	}
	return fold(sum16(msg, sum))
}

// EncodeAdvertisement returns the wire form of a with a fresh checksum. src
// and dst only matter for version 3.
func EncodeAdvertisement(a *Advertisement, src, dst netip.Addr) ([]byte, error) {
	a.SetPseudoHeader(src, dst)
	buf := gopacket.NewSerializeBuffer()
	if err := a.SerializeTo(buf, gopacket.SerializeOptions{ComputeChecksums: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeAdvertisement parses a VRRP message from an IPv4 payload.
func DecodeAdvertisement(b []byte) (*Advertisement, error) {
	if len(b) < headerLen {
		return nil, fmt.Errorf("advertisement too short: %d bytes", len(b))
	}
	a := &Advertisement{
		Version:  b[0] >> 4,
		Type:     b[0] & 0x0f,
		VRID:     b[1],
		Priority: b[2],
		Checksum: binary.BigEndian.Uint16(b[6:8]),
	}
	if a.Type != TypeAdvertisement {
		return nil, fmt.Errorf("unknown vrrp type %d", a.Type)
	}
	switch a.Version {
	case Version2:
		a.AuthType = b[4]
		a.AdvertInt = uint16(b[5])
	case Version3:
		a.AdvertInt = binary.BigEndian.Uint16(b[4:6]) & 0x0fff
	default:
		return nil, fmt.Errorf("unsupported vrrp version %d", a.Version)
	}

	count := int(b[3])
	if len(b) < headerLen+4*count {
		return nil, fmt.Errorf("advertisement truncated: %d addresses in %d bytes", count, len(b))
	}
	off := headerLen
	a.Addresses = make([]netip.Addr, 0, count)
	for i := 0; i < count; i++ {
		a.Addresses = append(a.Addresses, netip.AddrFrom4([4]byte(b[off:off+4])))
		off += 4
	}
	if a.Version == Version2 && len(b) >= off+authDataLen {
		a.Auth1 = binary.BigEndian.Uint32(b[off : off+4])
		a.Auth2 = binary.BigEndian.Uint32(b[off+4 : off+8])
	}
	return a, nil
}

// sum16 adds b to sum as big endian 16-bit words.
func sum16(b []byte, sum uint32) uint32 {
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	return sum
}

func fold(sum uint32) uint16 {
	for sum > 0xffff {
		sum = sum>>16 + sum&0xffff
	}
	return ^uint16(sum)
}

// VerifyChecksum reports whether msg carries a valid checksum for its version.
func VerifyChecksum(msg []byte, src, dst netip.Addr) bool {
	if len(msg) < headerLen {
		return false
	}
	a := &Advertisement{Version: msg[0] >> 4, src: src, dst: dst}
	return a.checksum(msg) == 0
}
