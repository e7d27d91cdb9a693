//go:build !linux

package network

import (
	"context"
	"net"
	"time"

	"netif-recorder/internal/domain/interfaces"

	"github.com/jackpal/gateway"
	"github.com/sirupsen/logrus"
)

// NewRouteQuerier creates a RouteQuerier backed by the system default route
func NewRouteQuerier(executor interfaces.CommandExecutor, timeout time.Duration, logger *logrus.Logger) interfaces.RouteQuerier {
	return &RouteQuerier{
		executor: executor,
		timeout:  timeout,
		native:   systemDefaultGateways,
		logger:   logger,
	}
}

// systemDefaultGateways reports the default gateway only for the interface
// that owns the address the default route leaves from.
func systemDefaultGateways(ctx context.Context, interfaceName string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	iface, err := net.InterfaceByName(interfaceName)
	if err != nil {
		return nil, err
	}

	gatewayIP, err := gateway.DiscoverGateway()
	if err != nil {
		return nil, err
	}
	localIP, err := gateway.DiscoverInterface()
	if err != nil {
		return nil, err
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(localIP) {
			return []string{gatewayIP.String()}, nil
		}
	}

	return nil, nil
}
