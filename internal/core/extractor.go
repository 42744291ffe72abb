package core

import (
	"net/netip"

	log "github.com/sirupsen/logrus"

	"github.com/SepehrImanian/vrrpown/internal/domain"
	"github.com/SepehrImanian/vrrpown/internal/ports"
	"github.com/SepehrImanian/vrrpown/internal/proto"
)

// AdvertisementFilter selects frames sent to the VRRP multicast group.
const AdvertisementFilter = "dst host 224.0.0.18 and ether dst host 01:00:5e:00:00:12"

// Extractor turns captured advertisements into learned virtual routers.
type Extractor struct {
	Repo   ports.RouterRepo
	Logger log.FieldLogger
}

func NewExtractor(repo ports.RouterRepo, logger log.FieldLogger) *Extractor {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Extractor{Repo: repo, Logger: logger}
}

// Learn walks frames in capture order and stores the first advertisement
// seen for every VRID. It returns how many routers were learned.
func (e *Extractor) Learn(frames [][]byte) int {
	learned := 0
	for _, data := range frames {
		f, ok := proto.Decode(data).(*proto.AdvertisementFrame)
		if !ok {
			continue
		}
		if e.Repo.Has(f.Adv.VRID) {
			continue
		}
		r := routerFromFrame(f)
		if !e.Repo.Add(r) {
			continue
		}
		learned++
		e.Logger.WithFields(log.Fields{
			"vrid":     r.VRID,
			"version":  r.Version,
			"priority": r.Priority,
			"interval": r.Interval(),
			"vips":     r.Addresses,
			"master":   r.Source,
			"mac":      r.SourceMAC,
		}).Info("learned virtual router")
	}
	return learned
}

func routerFromFrame(f *proto.AdvertisementFrame) domain.VirtualRouter {
	a := f.Adv
	addrs := make([]netip.Addr, len(a.Addresses))
	copy(addrs, a.Addresses)
	return domain.VirtualRouter{
		Version:   a.Version,
		VRID:      a.VRID,
		Priority:  a.Priority,
		AdvertInt: a.AdvertInt,
		Addresses: addrs,
		AuthType:  a.AuthType,
		Auth1:     a.Auth1,
		Auth2:     a.Auth2,
		Source:    f.SrcIP,
		SourceMAC: f.SrcMAC,
	}
}
