//go:build linux

package network

import (
	"context"
	"time"

	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// NewRouteQuerier creates a RouteQuerier backed by netlink
func NewRouteQuerier(executor interfaces.CommandExecutor, timeout time.Duration, logger *logrus.Logger) interfaces.RouteQuerier {
	return &RouteQuerier{
		executor: executor,
		timeout:  timeout,
		native:   netlinkDefaultGateways,
		logger:   logger,
	}
}

func netlinkDefaultGateways(ctx context.Context, interfaceName string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	link, err := netlink.LinkByName(interfaceName)
	if err != nil {
		return nil, err
	}

	routes, err := netlink.RouteList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, err
	}

	var gateways []string
	for _, route := range routes {
		if route.Gw == nil || !isDefaultRoute(route) {
			continue
		}
		gateways = append(gateways, route.Gw.String())
	}

	return gateways, nil
}

func isDefaultRoute(route netlink.Route) bool {
	if route.Dst == nil {
		return true
	}
	ones, _ := route.Dst.Mask.Size()
	return ones == 0 && route.Dst.IP.IsUnspecified()
}
