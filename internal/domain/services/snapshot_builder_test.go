package services

import (
	"context"
	"fmt"
	"net"
	"testing"

	"netif-recorder/internal/domain/entities"
	domainErrors "netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLinkLister struct {
	mock.Mock
}

func (m *MockLinkLister) ListLinks(ctx context.Context) ([]interfaces.ObservedLink, error) {
	args := m.Called(ctx)
	return args.Get(0).([]interfaces.ObservedLink), args.Error(1)
}

type MockRouteQuerier struct {
	mock.Mock
}

func (m *MockRouteQuerier) DefaultGateways(ctx context.Context, interfaceName string) ([]string, error) {
	args := m.Called(ctx, interfaceName)
	return args.Get(0).([]string), args.Error(1)
}

type MockResolverQuerier struct {
	mock.Mock
}

func (m *MockResolverQuerier) Nameservers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func TestSnapshotBuilder_Build(t *testing.T) {
	ctx := context.Background()

	links := []interfaces.ObservedLink{
		{
			Name:     "lo",
			Up:       true,
			Loopback: true,
			Addrs:    []net.IP{net.ParseIP("::1"), net.ParseIP("127.0.0.1")},
		},
		{
			Name:         "eth0",
			Up:           true,
			HardwareAddr: mustMAC(t, "36:64:78:2f:62:c0"),
			Addrs:        []net.IP{net.ParseIP("fe80::1"), net.ParseIP("192.168.1.20"), net.ParseIP("192.168.1.21")},
		},
		{
			Name:         "eth1",
			Up:           false,
			HardwareAddr: mustMAC(t, "00:11:22:33:44:55"),
		},
	}

	linkLister := new(MockLinkLister)
	linkLister.On("ListLinks", ctx).Return(links, nil)

	routes := new(MockRouteQuerier)
	routes.On("DefaultGateways", ctx, "lo").Return([]string{}, nil)
	routes.On("DefaultGateways", ctx, "eth0").Return([]string{"192.168.1.1", "192.168.1.254"}, nil)
	routes.On("DefaultGateways", ctx, "eth1").Return([]string{}, nil)

	resolver := new(MockResolverQuerier)
	resolver.On("Nameservers", ctx).Return([]string{"8.8.8.8", "1.1.1.1"}, nil).Once()

	builder := NewSnapshotBuilder(linkLister, routes, resolver, newTestLogger())
	records, err := builder.Build(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	t.Run("up loopback은 Wi-Fi로 표기", func(t *testing.T) {
		lo := records[0]
		assert.Equal(t, entities.InterfaceTypeWiFi, lo.InterfaceType)
		assert.Equal(t, entities.StatusActive, lo.Status)
		assert.Nil(t, lo.MacAddress)
		require.NotNil(t, lo.IPv4Address)
		assert.Equal(t, "127.0.0.1", *lo.IPv4Address)
		assert.Equal(t, []entities.Gateway{entities.UnsetGateway()}, lo.Gateway)
	})

	t.Run("up 인터페이스는 Ethernet", func(t *testing.T) {
		eth0 := records[1]
		assert.Equal(t, entities.InterfaceTypeEthernet, eth0.InterfaceType)
		require.NotNil(t, eth0.MacAddress)
		assert.Equal(t, "36:64:78:2f:62:c0", *eth0.MacAddress)
		require.NotNil(t, eth0.IPv4Address)
		assert.Equal(t, "192.168.1.20", *eth0.IPv4Address)
		assert.Equal(t, []entities.Gateway{
			{Name: "Default", IP: "192.168.1.1", SubnetMask: "255.255.255.0"},
			{Name: "Default", IP: "192.168.1.254", SubnetMask: "255.255.255.0"},
		}, eth0.Gateway)
	})

	t.Run("down 인터페이스는 Unknown/Inactive", func(t *testing.T) {
		eth1 := records[2]
		assert.Equal(t, entities.InterfaceTypeUnknown, eth1.InterfaceType)
		assert.Equal(t, entities.StatusInactive, eth1.Status)
		assert.Nil(t, eth1.IPv4Address)
	})

	t.Run("DNS는 모든 인터페이스에 독립 복사본으로 공유", func(t *testing.T) {
		for _, r := range records {
			assert.Equal(t, []string{"8.8.8.8", "1.1.1.1"}, r.DNS)
		}
		records[0].DNS[0] = "9.9.9.9"
		assert.Equal(t, "8.8.8.8", records[1].DNS[0])
	})

	resolver.AssertNumberOfCalls(t, "Nameservers", 1)
	routes.AssertExpectations(t)
}

func TestSnapshotBuilder_DegradesToSentinels(t *testing.T) {
	ctx := context.Background()

	linkLister := new(MockLinkLister)
	linkLister.On("ListLinks", ctx).Return([]interfaces.ObservedLink{{Name: "eth0", Up: true}}, nil)

	routes := new(MockRouteQuerier)
	routes.On("DefaultGateways", ctx, "eth0").Return([]string(nil), fmt.Errorf("netlink: operation not permitted"))

	resolver := new(MockResolverQuerier)
	resolver.On("Nameservers", ctx).Return([]string(nil), fmt.Errorf("open /etc/resolv.conf: no such file"))

	var degraded []string
	builder := NewSnapshotBuilder(linkLister, routes, resolver, newTestLogger())
	builder.OnDegrade(func(query string, err error) {
		assert.True(t, domainErrors.IsExternalQueryError(err))
		degraded = append(degraded, query)
	})

	records, err := builder.Build(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, []entities.Gateway{entities.UnsetGateway()}, records[0].Gateway)
	assert.Equal(t, []string{entities.Unset}, records[0].DNS)
	assert.ElementsMatch(t, []string{QueryRoute, QueryResolver}, degraded)
}

func TestSnapshotBuilder_EmptyResolverUsesSentinel(t *testing.T) {
	ctx := context.Background()

	linkLister := new(MockLinkLister)
	linkLister.On("ListLinks", ctx).Return([]interfaces.ObservedLink{{Name: "eth0"}}, nil)
	routes := new(MockRouteQuerier)
	routes.On("DefaultGateways", ctx, "eth0").Return([]string{}, nil)
	resolver := new(MockResolverQuerier)
	resolver.On("Nameservers", ctx).Return([]string{}, nil)

	records, err := NewSnapshotBuilder(linkLister, routes, resolver, newTestLogger()).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{entities.Unset}, records[0].DNS)
}

func TestSnapshotBuilder_LinkListingFailure(t *testing.T) {
	ctx := context.Background()

	linkLister := new(MockLinkLister)
	linkLister.On("ListLinks", ctx).Return([]interfaces.ObservedLink(nil), fmt.Errorf("route ip+net: netlinkrib: permission denied"))

	builder := NewSnapshotBuilder(linkLister, new(MockRouteQuerier), new(MockResolverQuerier), newTestLogger())
	records, err := builder.Build(ctx)

	assert.Nil(t, records)
	assert.True(t, domainErrors.IsSystemError(err))
}
