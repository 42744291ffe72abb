package netio

import (
	"context"
	"sync"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/SepehrImanian/vrrpown/internal/config"
	"github.com/SepehrImanian/vrrpown/internal/ports"
)

const (
	snapLen = 65535
	// readTimeout bounds each blocking read so cancellation is noticed.
	readTimeout = 250 * time.Millisecond
)

// SetupError reports that a capture or inject handle could not be opened,
// most often for lack of privileges.
type SetupError struct {
	Interface string
	Err       error
}

func (e *SetupError) Error() string {
	return "open " + e.Interface + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error { return e.Err }

// Pcap captures and injects frames on one interface through libpcap.
type Pcap struct {
	iface string

	mu  sync.Mutex
	out *pcap.Handle
}

var (
	_ ports.FrameCapture = (*Pcap)(nil)
	_ ports.FrameSender  = (*Pcap)(nil)
)

func NewPcap(cfg *config.Config) *Pcap {
	return &Pcap{iface: cfg.Interface}
}

func (p *Pcap) open(filter string) (*pcap.Handle, error) {
	h, err := pcap.OpenLive(p.iface, snapLen, true, readTimeout)
	if err != nil {
		return nil, &SetupError{Interface: p.iface, Err: err}
	}
	if filter != "" {
		if err := h.SetBPFFilter(filter); err != nil {
			h.Close()
			return nil, &SetupError{Interface: p.iface, Err: errors.Wrapf(err, "filter %q", filter)}
		}
	}
	return h, nil
}

func (p *Pcap) Collect(ctx context.Context, filter string, timeout time.Duration) ([][]byte, error) {
	h, err := p.open(filter)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	var frames [][]byte
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		data, _, err := h.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			continue
		}
		if err != nil {
			return frames, errors.Wrapf(err, "capture on %s", p.iface)
		}
		frames = append(frames, data)
	}
	return frames, nil
}

func (p *Pcap) Listen(ctx context.Context, filter string, onFrame func([]byte) error) error {
	h, err := p.open(filter)
	if err != nil {
		return err
	}
	defer h.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		data, _, err := h.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "capture on %s", p.iface)
		}
		if err := onFrame(data); err != nil {
			return err
		}
	}
}

// Send writes frame through a shared inject handle opened on first use.
func (p *Pcap) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		h, err := p.open("")
		if err != nil {
			return err
		}
		p.out = h
	}
	if err := p.out.WritePacketData(frame); err != nil {
		return errors.Wrapf(err, "send on %s", p.iface)
	}
	return nil
}

func (p *Pcap) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Close()
		p.out = nil
	}
}
