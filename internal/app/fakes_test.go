package app

import (
	"context"
	"io"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/SepehrImanian/vrrpown/internal/domain"
	"github.com/SepehrImanian/vrrpown/internal/proto"
)

var (
	localMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	hostMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x09}
	hostIP   = netip.MustParseAddr("10.0.0.50")
	sourceIP = netip.MustParseAddr("10.0.0.254")
)

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
	// onSend runs after a frame is recorded.
	onSend func(frame []byte, n int)
}

func (s *fakeSender) Send(frame []byte) error {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return s.err
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	n := len(s.frames)
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook(frame, n)
	}
	return nil
}

func (s *fakeSender) Sent() []proto.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]proto.Frame, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, proto.Decode(f))
	}
	return out
}

type fakeCapture struct {
	collected  [][]byte
	collectErr error

	// frames are replayed to Listen before it blocks on ctx.
	frames    [][]byte
	listenErr error

	mu        sync.Mutex
	filters   []string
	listening bool
}

func (c *fakeCapture) Collect(ctx context.Context, filter string, timeout time.Duration) ([][]byte, error) {
	c.mu.Lock()
	c.filters = append(c.filters, filter)
	c.mu.Unlock()
	return c.collected, c.collectErr
}

func (c *fakeCapture) Listen(ctx context.Context, filter string, onFrame func([]byte) error) error {
	c.mu.Lock()
	c.filters = append(c.filters, filter)
	c.listening = true
	c.mu.Unlock()
	for _, f := range c.frames {
		if err := onFrame(f); err != nil {
			return err
		}
	}
	if c.listenErr != nil {
		return c.listenErr
	}
	<-ctx.Done()
	return nil
}

func (c *fakeCapture) Listened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

type fakeInfo struct{}

func (fakeInfo) HardwareAddr() (net.HardwareAddr, error) { return localMAC, nil }

func vips(ss ...string) []netip.Addr {
	out := make([]netip.Addr, 0, len(ss))
	for _, s := range ss {
		out = append(out, netip.MustParseAddr(s))
	}
	return out
}

func legitAdvertisement(t *testing.T, vrid uint8, addrs ...string) []byte {
	t.Helper()
	r := domain.VirtualRouter{Version: 2, VRID: vrid, AdvertInt: 1, Addresses: vips(addrs...)}
	b, err := proto.BuildAdvertisementWithPriority(netip.MustParseAddr("10.0.0.1"), r, 100)
	require.NoError(t, err)
	return b
}

func serialize(t *testing.T, sl ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, sl...))
	return buf.Bytes()
}

func arpRequest(t *testing.T, target string) []byte {
	t.Helper()
	return serialize(t,
		&layers.Ethernet{SrcMAC: hostMAC, DstMAC: proto.BroadcastMAC, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   hostMAC,
			SourceProtAddress: hostIP.AsSlice(),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    netip.MustParseAddr(target).AsSlice(),
		},
	)
}

func echoRequest(t *testing.T, dst string, id, seq uint16, payload []byte) []byte {
	t.Helper()
	sl := []gopacket.SerializableLayer{
		&layers.Ethernet{SrcMAC: hostMAC, DstMAC: localMAC, EthernetType: layers.EthernetTypeIPv4},
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    hostIP.AsSlice(),
			DstIP:    netip.MustParseAddr(dst).AsSlice(),
		},
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: id, Seq: seq},
	}
	if len(payload) > 0 {
		sl = append(sl, gopacket.Payload(payload))
	}
	return serialize(t, sl...)
}
