package app

import (
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/SepehrImanian/vrrpown/internal/domain"
	"github.com/SepehrImanian/vrrpown/internal/ports"
	"github.com/SepehrImanian/vrrpown/internal/proto"
)

// ResponderFilter matches broadcast ARP and all ICMP.
const ResponderFilter = "(arp and ether dst host ff:ff:ff:ff:ff:ff) or icmp"

// Responder answers ARP and ICMP echo traffic for the owned VIPs so hosts
// keep resolving and reaching their gateway.
type Responder struct {
	VIPs    *domain.VIPSet
	MAC     net.HardwareAddr
	Capture ports.FrameCapture
	Sender  ports.FrameSender
	Logger  log.FieldLogger

	arpReplies  atomic.Uint64
	echoReplies atomic.Uint64
}

// Announce sends one gratuitous ARP per VIP.
func (r *Responder) Announce() error {
	for _, vip := range r.VIPs.All() {
		f, err := proto.BuildGratuitousARP(r.MAC, vip)
		if err != nil {
			return errors.Wrapf(err, "gratuitous arp for %s", vip)
		}
		if err := r.Sender.Send(f); err != nil {
			return errors.Wrapf(err, "gratuitous arp for %s", vip)
		}
		r.Logger.WithField("vip", vip).Debug("sent gratuitous arp")
	}
	return nil
}

// Run announces the VIPs and then answers traffic until state stops. A
// capture or send failure stops state with that error; it is not retried.
func (r *Responder) Run(state *domain.RunState) error {
	if err := r.Announce(); err != nil {
		r.fail(state, err)
		return nil
	}
	r.Logger.WithField("vips", r.VIPs.Len()).Info("starting ARP / ICMP responder")

	ctx := state.Context()
	err := r.Capture.Listen(ctx, ResponderFilter, func(data []byte) error {
		if !state.Running() {
			return nil
		}
		return r.dispatch(data)
	})
	if err != nil && state.Running() {
		r.fail(state, err)
	}
	return nil
}

func (r *Responder) fail(state *domain.RunState, err error) {
	r.Logger.WithError(err).Error("problem handling ARP / ICMP frames, stopping")
	state.Stop(err)
}

func (r *Responder) dispatch(data []byte) error {
	switch f := proto.Decode(data).(type) {
	case *proto.ARPFrame:
		return r.onARP(f)
	case *proto.EchoFrame:
		return r.onEcho(f)
	case *proto.AdvertisementFrame, nil:
		// the capture filter may let the first frame through unfiltered
		return nil
	default:
		return nil
	}
}

func (r *Responder) onARP(f *proto.ARPFrame) error {
	if !f.IsRequest() || !r.VIPs.Contains(f.TargetIP) {
		return nil
	}
	reply, err := proto.BuildARPReply(f.SrcMAC, r.MAC, f.SenderIP, f.TargetIP)
	if err != nil {
		r.Logger.WithError(err).WithField("from", f.SenderIP).Warn("dropping malformed arp request")
		return nil
	}
	if err := r.Sender.Send(reply); err != nil {
		return errors.Wrapf(err, "arp reply for %s", f.TargetIP)
	}
	r.arpReplies.Add(1)
	r.Logger.WithFields(log.Fields{"vip": f.TargetIP, "to": f.SenderIP}).Debug("answered arp request")
	return nil
}

func (r *Responder) onEcho(f *proto.EchoFrame) error {
	if !r.VIPs.Contains(f.DstIP) {
		return nil
	}
	reply, err := proto.BuildEchoReply(f.SrcMAC, r.MAC, f.SrcIP, f.DstIP, f.ID, f.Seq, f.Payload)
	if err != nil {
		r.Logger.WithError(err).WithField("from", f.SrcIP).Warn("dropping malformed echo")
		return nil
	}
	if err := r.Sender.Send(reply); err != nil {
		return errors.Wrapf(err, "echo reply for %s", f.DstIP)
	}
	r.echoReplies.Add(1)
	r.Logger.WithFields(log.Fields{"vip": f.DstIP, "to": f.SrcIP, "id": f.ID, "seq": f.Seq}).Debug("answered echo")
	return nil
}

func (r *Responder) ARPReplies() uint64  { return r.arpReplies.Load() }
func (r *Responder) EchoReplies() uint64 { return r.echoReplies.Load() }
