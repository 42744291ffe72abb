package proto

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSrc = netip.MustParseAddr("192.168.1.254")
	vip1    = netip.MustParseAddr("192.168.1.1")
	vip2    = netip.MustParseAddr("192.168.1.2")
)

func TestAdvertisementV2RoundTrip(t *testing.T) {
	in := &Advertisement{
		Version:   Version2,
		Type:      TypeAdvertisement,
		VRID:      7,
		Priority:  100,
		AuthType:  1,
		AdvertInt: 3,
		Addresses: []netip.Addr{vip1, vip2},
		Auth1:     0x70617373,
		Auth2:     0x776f7264,
	}
	b, err := EncodeAdvertisement(in, testSrc, MulticastAddr)
	require.NoError(t, err)
	require.Len(t, b, 8+2*4+8)
	assert.Equal(t, byte(0x21), b[0], "version 2, type 1")
	assert.True(t, VerifyChecksum(b, testSrc, MulticastAddr))

	out, err := DecodeAdvertisement(b)
	require.NoError(t, err)
	assert.Equal(t, Version2, out.Version)
	assert.Equal(t, uint8(7), out.VRID)
	assert.Equal(t, uint8(100), out.Priority)
	assert.Equal(t, uint8(1), out.AuthType)
	assert.Equal(t, uint16(3), out.AdvertInt)
	assert.Equal(t, []netip.Addr{vip1, vip2}, out.Addresses)
	assert.Equal(t, uint32(0x70617373), out.Auth1)
	assert.Equal(t, uint32(0x776f7264), out.Auth2)
	assert.Equal(t, in.Checksum, out.Checksum)
}

func TestAdvertisementV3RoundTrip(t *testing.T) {
	in := &Advertisement{
		Version:   Version3,
		Type:      TypeAdvertisement,
		VRID:      42,
		Priority:  200,
		AdvertInt: 100,
		Addresses: []netip.Addr{vip1},
	}
	b, err := EncodeAdvertisement(in, testSrc, MulticastAddr)
	require.NoError(t, err)
	require.Len(t, b, 8+4, "v3 carries no auth data")
	assert.Equal(t, byte(0x31), b[0])
	assert.True(t, VerifyChecksum(b, testSrc, MulticastAddr))
	assert.False(t, VerifyChecksum(b, netip.MustParseAddr("192.168.1.253"), MulticastAddr),
		"v3 checksum covers the pseudo-header")

	out, err := DecodeAdvertisement(b)
	require.NoError(t, err)
	assert.Equal(t, Version3, out.Version)
	assert.Equal(t, uint16(100), out.AdvertInt)
	assert.Equal(t, []netip.Addr{vip1}, out.Addresses)
	assert.Zero(t, out.AuthType)
}

func TestVerifyChecksumDetectsCorruption(t *testing.T) {
	b, err := EncodeAdvertisement(&Advertisement{
		Version:   Version2,
		Type:      TypeAdvertisement,
		VRID:      1,
		Priority:  100,
		AdvertInt: 1,
		Addresses: []netip.Addr{vip1},
	}, testSrc, MulticastAddr)
	require.NoError(t, err)

	b[2] = 101
	assert.False(t, VerifyChecksum(b, testSrc, MulticastAddr))
}

func TestDecodeAdvertisementWithoutAuthData(t *testing.T) {
	b := []byte{0x21, 5, 100, 1, 0, 1, 0, 0, 10, 0, 0, 1}
	a, err := DecodeAdvertisement(b)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), a.VRID)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.1")}, a.Addresses)
	assert.Zero(t, a.Auth1)
	assert.Zero(t, a.Auth2)
}

func TestDecodeAdvertisementRejects(t *testing.T) {
	cases := map[string][]byte{
		"short":         {0x21, 5, 100},
		"unknown type":  {0x22, 5, 100, 0, 0, 1, 0, 0},
		"version 1":     {0x11, 5, 100, 0, 0, 1, 0, 0},
		"truncated ips": {0x21, 5, 100, 2, 0, 1, 0, 0, 10, 0, 0, 1},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAdvertisement(b)
			assert.Error(t, err)
		})
	}
}

func TestEncodeAdvertisementRejectsIPv6(t *testing.T) {
	_, err := EncodeAdvertisement(&Advertisement{
		Version:   Version2,
		Type:      TypeAdvertisement,
		Addresses: []netip.Addr{netip.MustParseAddr("2001:db8::1")},
	}, testSrc, MulticastAddr)
	assert.Error(t, err)
}
