package network

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// nativeRouteFunc queries default gateways through a platform API
type nativeRouteFunc func(ctx context.Context, interfaceName string) ([]string, error)

// RouteQuerier resolves the default gateways of an interface. The platform
// lookup is tried first; `ip route show dev <name>` is the fallback.
type RouteQuerier struct {
	executor interfaces.CommandExecutor
	timeout  time.Duration
	native   nativeRouteFunc
	logger   *logrus.Logger
}

// DefaultGateways returns the gateway IPs of the default routes bound to interfaceName
func (q *RouteQuerier) DefaultGateways(ctx context.Context, interfaceName string) ([]string, error) {
	if q.native != nil {
		gateways, err := q.native(ctx, interfaceName)
		if err == nil {
			return gateways, nil
		}
		q.logger.WithFields(logrus.Fields{
			"interface": interfaceName,
			"error":     err,
		}).Debug("Native route lookup failed, falling back to ip route")
	}

	output, err := q.executor.ExecuteWithTimeout(ctx, q.timeout, "ip", "route", "show", "dev", interfaceName)
	if err != nil {
		return nil, errors.NewExternalQueryError(fmt.Sprintf("failed to query routes of %s", interfaceName), err)
	}

	return ParseDefaultGateways(output), nil
}

// ParseDefaultGateways extracts the gateway of every "default via <ip>" line
// of `ip route show` output.
func ParseDefaultGateways(output []byte) []string {
	var gateways []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "default via") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "default" || fields[1] != "via" {
			continue
		}
		if net.ParseIP(fields[2]) == nil {
			continue
		}
		gateways = append(gateways, fields[2])
	}

	return gateways
}
