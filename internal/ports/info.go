package ports

import (
	"net"
)

type LocalInfo interface {
	HardwareAddr() (net.HardwareAddr, error)
}
