package adapters

import (
	"context"
	"net"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// NetLinkLister는 net 패키지로 호스트 인터페이스를 나열합니다
type NetLinkLister struct {
	logger *logrus.Logger
}

// NewNetLinkLister는 새로운 NetLinkLister를 생성합니다
func NewNetLinkLister(logger *logrus.Logger) interfaces.LinkLister {
	return &NetLinkLister{logger: logger}
}

// ListLinks는 OS가 보고하는 모든 인터페이스를 OS 순서대로 반환합니다
func (l *NetLinkLister) ListLinks(ctx context.Context) ([]interfaces.ObservedLink, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	links := make([]interfaces.ObservedLink, 0, len(ifaces))
	for _, iface := range ifaces {
		link := interfaces.ObservedLink{
			Name:         iface.Name,
			Up:           iface.Flags&net.FlagUp != 0,
			Loopback:     iface.Flags&net.FlagLoopback != 0,
			HardwareAddr: iface.HardwareAddr,
		}

		addrs, err := iface.Addrs()
		if err != nil {
			// 주소를 읽을 수 없는 인터페이스도 기록함
			l.logger.WithError(err).WithField("interface", iface.Name).Warn("Failed to read interface addresses")
		}
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				link.Addrs = append(link.Addrs, v.IP)
			case *net.IPAddr:
				link.Addrs = append(link.Addrs, v.IP)
			}
		}

		links = append(links, link)
	}

	return links, nil
}
