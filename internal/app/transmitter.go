package app

import (
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/SepehrImanian/vrrpown/internal/domain"
	"github.com/SepehrImanian/vrrpown/internal/ports"
	"github.com/SepehrImanian/vrrpown/internal/proto"
)

// DefaultAdvertInterval out-paces every legitimate interval of one second or
// more. The interval learned from the capture is not used.
const DefaultAdvertInterval = time.Second

type advertisement struct {
	vrid  uint8
	frame []byte
}

// Transmitter sends one forged advertisement per learned router every
// Interval while the run state holds.
type Transmitter struct {
	Interval time.Duration
	Sender   ports.FrameSender
	Logger   log.FieldLogger

	frames []advertisement

	rounds atomic.Uint64
	sent   atomic.Uint64
}

// NewTransmitter builds the advertisements for routers, in order, once.
func NewTransmitter(src netip.Addr, routers []domain.VirtualRouter, prio uint8, sender ports.FrameSender, logger log.FieldLogger) (*Transmitter, error) {
	t := &Transmitter{
		Interval: DefaultAdvertInterval,
		Sender:   sender,
		Logger:   logger,
	}
	for _, r := range routers {
		f, err := proto.BuildAdvertisementWithPriority(src, r, prio)
		if err != nil {
			return nil, err
		}
		t.frames = append(t.frames, advertisement{vrid: r.VRID, frame: f})
	}
	return t, nil
}

// Run loops until state stops. A failed send ends the loop with its error.
func (t *Transmitter) Run(state *domain.RunState) error {
	for state.Running() {
		for _, a := range t.frames {
			if err := t.Sender.Send(a.frame); err != nil {
				return errors.Wrapf(err, "advertise vrid %d", a.vrid)
			}
			t.sent.Add(1)
		}
		n := t.rounds.Add(1)
		if n == 1 {
			t.Logger.WithField("routers", len(t.frames)).Info("first advertisement round sent")
		}
		t.Logger.WithField("round", n).Debug("advertisement round sent")

		select {
		case <-state.Done():
		case <-time.After(t.Interval):
		}
	}
	return nil
}

func (t *Transmitter) Rounds() uint64 { return t.rounds.Load() }
func (t *Transmitter) Sent() uint64   { return t.sent.Load() }
