package network

import (
	"context"
	"fmt"

	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// ResolvConfQuerier reads nameservers from a resolv.conf style file
type ResolvConfQuerier struct {
	path   string
	logger *logrus.Logger
}

// NewResolvConfQuerier creates a new ResolvConfQuerier
func NewResolvConfQuerier(path string, logger *logrus.Logger) interfaces.ResolverQuerier {
	return &ResolvConfQuerier{
		path:   path,
		logger: logger,
	}
}

// Nameservers returns the nameserver entries in file order
func (q *ResolvConfQuerier) Nameservers(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	config, err := dns.ClientConfigFromFile(q.path)
	if err != nil {
		return nil, errors.NewExternalQueryError(fmt.Sprintf("failed to read resolver configuration %s", q.path), err)
	}

	q.logger.WithFields(logrus.Fields{
		"path":        q.path,
		"nameservers": len(config.Servers),
	}).Debug("Resolver configuration read")

	return append([]string{}, config.Servers...), nil
}
